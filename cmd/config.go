package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "revdash"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage revdash configuration.

Running bare 'revdash config' is the same as 'revdash config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# revdash configuration
# See: revdash config show (for effective values and sources)

# State/data directory (default: ~/.config/revdash)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/revdash/revdash.db)
# db_path: {{ .DBPath }}

# Database
db:
  # Storage backend: sqlite, postgres or cockroachdb (default: "sqlite")
  driver: "{{ .DBDriver }}"

  # Connection string for postgres/cockroachdb
  dsn: "{{ .DBDSN }}"

# HTTP server port for "revdash serve" (default: 8000)
port: {{ .Port }}

server:
  # Allowed CORS origin for the REST API (default: "*")
  cors_origin: "{{ .CORSOrigin }}"

# Base URL of the REST API used by terminal commands
api:
  url: "{{ .APIURL }}"

# GitHub (falls back to $GITHUB_TOKEN)
github:
  token: ""

# Scraper
scrape:
  # Look-back window in days (default: 7)
  days: {{ .ScrapeDays }}

  # Login of the bot that posts AI reviews
  bot_login: "{{ .BotLogin }}"

  # Classify replies with Claude when a comment has no reactions (default: false)
  classify: {{ .Classify }}

# Anthropic (used when scrape.classify is true)
anthropic:
  api_key: ""
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	StateDir       string
	DBPath         string
	DBDriver       string
	DBDSN          string
	Port           int
	CORSOrigin     string
	APIURL         string
	ScrapeDays     int
	BotLogin       string
	Classify       bool
	AnthropicModel string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:       viper.GetString("state_dir"),
		DBPath:         viper.GetString("db_path"),
		DBDriver:       viper.GetString("db.driver"),
		DBDSN:          viper.GetString("db.dsn"),
		Port:           viper.GetInt("port"),
		CORSOrigin:     viper.GetString("server.cors_origin"),
		APIURL:         viper.GetString("api.url"),
		ScrapeDays:     viper.GetInt("scrape.days"),
		BotLogin:       viper.GetString("scrape.bot_login"),
		Classify:       viper.GetBool("scrape.classify"),
		AnthropicModel: viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "REVDASH_STATE_DIR"},
	{Key: "db_path", EnvVar: "REVDASH_DB_PATH"},
	{Key: "db.driver", EnvVar: "REVDASH_DB_DRIVER"},
	{Key: "db.dsn", EnvVar: "REVDASH_DB_DSN", Secret: true},
	{Key: "port", EnvVar: "REVDASH_PORT"},
	{Key: "server.cors_origin", EnvVar: "REVDASH_SERVER_CORS_ORIGIN"},
	{Key: "api.url", EnvVar: "REVDASH_API_URL"},
	{Key: "github.token", EnvVar: "REVDASH_GITHUB_TOKEN", Secret: true},
	{Key: "scrape.days", EnvVar: "REVDASH_SCRAPE_DAYS"},
	{Key: "scrape.bot_login", EnvVar: "REVDASH_SCRAPE_BOT_LOGIN"},
	{Key: "scrape.version_pattern", EnvVar: "REVDASH_SCRAPE_VERSION_PATTERN"},
	{Key: "scrape.classify", EnvVar: "REVDASH_SCRAPE_CLASSIFY"},
	{Key: "anthropic.api_key", EnvVar: "REVDASH_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "REVDASH_ANTHROPIC_MODEL"},
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'revdash config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
