package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hirewire/jobcrawl/internal/config"
	"github.com/hirewire/jobcrawl/internal/database"
	"github.com/hirewire/jobcrawl/internal/domain"
)

// newSessionsCmd creates the sessions command group.
func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect crawl sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crawl sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			db, err := database.NewPostgresConnection(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			sessions, err := database.NewSessionRepository(db).List(ctx, status, limit, offset)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			renderSessionsTable(cmd, sessions)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (running, completed, failed, stopped)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "sessions to skip")

	return cmd
}

func renderSessionsTable(cmd *cobra.Command, sessions []*domain.CrawlSession) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Session ID", "Status", "Started", "Duration", "Jobs", "Errors"})

	for _, s := range sessions {
		t.AppendRow(table.Row{
			s.SessionID,
			s.Status,
			s.StartTime.Format(time.RFC3339),
			sessionDuration(s),
			s.Statistics.TotalJobsFound,
			len(s.Errors),
		})
	}

	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "%d session(s)\n", len(sessions))
}

func sessionDuration(s *domain.CrawlSession) string {
	if s.EndTime == nil {
		return "-"
	}
	return s.Duration().Round(time.Second).String()
}
