package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revdash/internal/client"
	"github.com/joescharf/revdash/internal/github"
	"github.com/joescharf/revdash/internal/output"
	"github.com/joescharf/revdash/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "revdash",
	Short: "AI review feedback dashboard",
	Long: `revdash tracks AI-generated pull request review comments and how
developers reacted to them. It scrapes review comments from GitHub, stores
them, and serves sentiment analytics over a REST API, a web dashboard,
the terminal, and MCP.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/revdash/config.yaml)")
}

func initConfig() {
	// A .env in the working directory feeds the environment; real env vars win.
	_ = godotenv.Load()

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REVDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key's default, rooted at stateDir.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db_path", filepath.Join(stateDir, "revdash.db"))
	viper.SetDefault("db.dsn", "postgresql://root@localhost:26257/defaultdb?sslmode=disable")
	viper.SetDefault("port", 8000)
	viper.SetDefault("server.cors_origin", "*")
	viper.SetDefault("api.url", "http://localhost:8000/api")
	viper.SetDefault("github.token", "")
	viper.SetDefault("scrape.days", 7)
	viper.SetDefault("scrape.bot_login", "github-actions[bot]")
	viper.SetDefault("scrape.version_pattern", `workflow[_-]version:\s*([\w.\-]+)`)
	viper.SetDefault("scrape.classify", false)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Initialize store lazily: only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	driver := viper.GetString("db.driver")
	s, err := store.Open(ctx, driver, viper.GetString("db_path"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	ui.VerboseLog("Using %s database", s.Driver())
	dataStore = s
	return dataStore, nil
}

// githubToken returns the configured token, falling back to GITHUB_TOKEN.
func githubToken() string {
	if t := viper.GetString("github.token"); t != "" {
		return t
	}
	return os.Getenv("GITHUB_TOKEN")
}

// githubClient returns a GitHub client, or nil when no token is configured.
func githubClient() *github.Client {
	token := githubToken()
	if token == "" {
		return nil
	}
	return github.NewClient(token)
}

// apiClient returns a client for the configured revdash API.
func apiClient() *client.Client {
	return client.New(viper.GetString("api.url"))
}
