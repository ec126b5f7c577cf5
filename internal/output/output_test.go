package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestDryRunMsg_Enabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = true
	u.DryRunMsg("would create %s", "file")
	assert.Contains(t, errOut.String(), "[DRY-RUN]")
	assert.Contains(t, errOut.String(), "would create file")
}

func TestDryRunMsg_Disabled(t *testing.T) {
	u, _, errOut := newTestUI()
	u.DryRun = false
	u.DryRunMsg("would create %s", "file")
	assert.Empty(t, errOut.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestSentimentColor(t *testing.T) {
	assert.Contains(t, SentimentColor("positive"), "positive")
	assert.Contains(t, SentimentColor("negative"), "negative")
	assert.Contains(t, SentimentColor("neutral"), "neutral")
	assert.Equal(t, "unknown", SentimentColor("unknown"))
}

func TestRateColor(t *testing.T) {
	assert.Contains(t, RateColor(90), "90.0%")
	assert.Contains(t, RateColor(50), "50.0%")
	assert.Contains(t, RateColor(12.345), "12.3%")
}

func TestChangeColor(t *testing.T) {
	assert.Equal(t, "0.0%", ChangeColor(0, "0.0%", false))
	assert.Contains(t, ChangeColor(10, "+10.0%", false), "+10.0%")
	assert.Contains(t, ChangeColor(10, "+10.0%", true), "+10.0%")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 10, 20))
	assert.Equal(t, "", Bar(5, 0, 20))
	assert.Equal(t, 20, len([]rune(Bar(10, 10, 20))))
	assert.Equal(t, 10, len([]rune(Bar(5, 10, 20))))
	assert.Equal(t, 1, len([]rune(Bar(1, 1000, 20))), "non-zero counts stay visible")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Name", "Status"})
	require.NotNil(t, table)

	table.Append([]string{"acme/api", "enabled"})
	table.Append([]string{"acme/web", "disabled"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "acme/api"), "table output should contain repo names")
	assert.True(t, strings.Contains(result, "acme/web"), "table output should contain repo names")
}
