package cmd

import (
	"os"

	"github.com/spf13/viper"

	"github.com/joescharf/revdash/internal/llm"
	"github.com/joescharf/revdash/internal/scrape"
)

// newClassifier returns a reply classifier when scrape.classify is on and an
// API key is configured, or nil otherwise.
func newClassifier() scrape.Classifier {
	if !viper.GetBool("scrape.classify") {
		return nil
	}
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		ui.Warning("scrape.classify is set but no Anthropic API key is configured; skipping classification")
		return nil
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model"))
}
