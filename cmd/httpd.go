package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirewire/jobcrawl/internal/api"
	"github.com/hirewire/jobcrawl/internal/domain"
	"github.com/hirewire/jobcrawl/internal/scheduler"
)

// newHTTPDCmd creates the API server command. The scheduler runs in the
// same process when scheduler.enabled is set.
func newHTTPDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			// Crawls started over HTTP outlive their request; they stop
			// when the server shuts down.
			runCtx, cancelRuns := context.WithCancel(context.Background())
			defer cancelRuns()

			handler := api.NewHandler(runCtx, svc.crawler, svc.sessions, svc.jobs, svc.robots, svc.log)
			server := api.NewServer(svc.cfg.Server, handler, svc.log)

			var sched *scheduler.Scheduler
			if svc.cfg.Scheduler.Enabled {
				sched = scheduler.New(svc.crawler, svc.jobs, scheduler.Config{
					CrawlSchedule:   svc.cfg.Scheduler.CrawlSchedule,
					CleanupSchedule: svc.cfg.Scheduler.CleanupSchedule,
					RetentionDays:   svc.cfg.Scheduler.RetentionDays,
					Session: domain.SessionConfig{
						Sources:     svc.cfg.Crawler.Sources,
						Companies:   svc.cfg.Crawler.Companies,
						SearchTerms: svc.cfg.Crawler.SearchTerms,
						Locations:   svc.cfg.Crawler.Locations,
						MaxJobs:     svc.cfg.Crawler.MaxJobs,
					},
				}, svc.log)
				if err := sched.Start(runCtx); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			svc.log.Info("Shutting down")
			if sched != nil {
				sched.Stop()
			}
			cancelRuns()
			return server.Shutdown(context.Background())
		},
	}
}
