package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/revdash/internal/github"
	"github.com/joescharf/revdash/internal/models"
	"github.com/joescharf/revdash/internal/output"
	"github.com/joescharf/revdash/internal/store"
)

var (
	repoTeam        string
	repoDisabled    bool
	repoEnabledOnly bool
)

var repoCmd = &cobra.Command{
	Use:     "repo",
	Aliases: []string{"repos"},
	Short:   "Manage subscribed repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun(cmd.Context())
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun(cmd.Context())
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Subscribe a repository for scraping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoAddRun(cmd.Context(), args[0])
	},
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable <owner/repo>",
	Short: "Resume scraping a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoSetEnabledRun(cmd.Context(), args[0], true)
	},
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable <owner/repo>",
	Short: "Pause scraping a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoSetEnabledRun(cmd.Context(), args[0], false)
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:     "remove <owner/repo>",
	Aliases: []string{"rm"},
	Short:   "Unsubscribe a repository",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoRemoveRun(cmd.Context(), args[0])
	},
}

func init() {
	repoListCmd.Flags().BoolVar(&repoEnabledOnly, "enabled", false, "Show only enabled repositories")
	repoAddCmd.Flags().StringVar(&repoTeam, "team", "", "Owning team")
	repoAddCmd.Flags().BoolVar(&repoDisabled, "disabled", false, "Subscribe without enabling scraping")

	repoCmd.AddCommand(repoListCmd, repoAddCmd, repoEnableCmd, repoDisableCmd, repoRemoveCmd)
	rootCmd.AddCommand(repoCmd)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func repoListRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	repos, err := s.ListRepos(ctx, store.RepoListFilter{EnabledOnly: repoEnabledOnly, Limit: -1})
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		ui.Info("No repositories subscribed. Use 'revdash repo add <owner/repo>' to get started.")
		return nil
	}

	table := ui.Table([]string{"Repository", "Team", "Enabled", "Subscribed"})
	for _, r := range repos {
		team := "-"
		if r.Team != nil && *r.Team != "" {
			team = *r.Team
		}
		enabled := output.Green("yes")
		if !r.Enabled {
			enabled = output.Yellow("no")
		}
		table.Append([]string{r.RepoName, team, enabled, r.SubscribedAt.Local().Format("2006-01-02")})
	}
	table.Render()
	return nil
}

func repoAddRun(ctx context.Context, name string) error {
	ctx = ctxOrBackground(ctx)
	if _, _, err := github.ParseRepoName(name); err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	if _, err := s.GetRepo(ctx, name); err == nil {
		return fmt.Errorf("repository %s is already subscribed", name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	repo := &models.Repo{RepoName: name, Enabled: !repoDisabled}
	if repoTeam != "" {
		team := repoTeam
		repo.Team = &team
	}

	if dryRun {
		ui.DryRunMsg("Would subscribe %s", name)
		return nil
	}
	if err := s.CreateRepo(ctx, repo); err != nil {
		return err
	}
	ui.Success("Subscribed %s", output.Cyan(name))
	return nil
}

func repoSetEnabledRun(ctx context.Context, name string, enabled bool) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	repo, err := s.GetRepo(ctx, name)
	if err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	if repo.Enabled == enabled {
		ui.Info("%s is already %s", name, state)
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would set %s enabled=%t", name, enabled)
		return nil
	}

	repo.Enabled = enabled
	if err := s.UpdateRepo(ctx, repo); err != nil {
		return err
	}
	ui.Success("%s is now %s", output.Cyan(name), state)
	return nil
}

func repoRemoveRun(ctx context.Context, name string) error {
	ctx = ctxOrBackground(ctx)
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		if _, err := s.GetRepo(ctx, name); err != nil {
			return err
		}
		ui.DryRunMsg("Would unsubscribe %s", name)
		return nil
	}
	if err := s.DeleteRepo(ctx, name); err != nil {
		return err
	}
	ui.Success("Unsubscribed %s (stored reviews are kept)", output.Cyan(name))
	return nil
}
