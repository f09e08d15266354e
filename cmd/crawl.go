package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hirewire/jobcrawl/internal/domain"
)

// newCrawlCmd creates the one-shot crawl command. Flags override the
// crawler.* configuration for a single session.
func newCrawlCmd() *cobra.Command {
	var (
		srcs      []string
		companies []string
		terms     []string
		locations []string
		maxJobs   int
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a single crawl session and wait for it to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			sessionCfg := domain.SessionConfig{
				Sources:     svc.cfg.Crawler.Sources,
				Companies:   svc.cfg.Crawler.Companies,
				SearchTerms: svc.cfg.Crawler.SearchTerms,
				Locations:   svc.cfg.Crawler.Locations,
				MaxJobs:     svc.cfg.Crawler.MaxJobs,
			}
			if len(srcs) > 0 {
				sessionCfg.Sources = srcs
			}
			if len(companies) > 0 {
				sessionCfg.Companies = companies
			}
			if len(terms) > 0 {
				sessionCfg.SearchTerms = terms
			}
			if len(locations) > 0 {
				sessionCfg.Locations = locations
			}
			if maxJobs > 0 {
				sessionCfg.MaxJobs = maxJobs
			}
			if len(sessionCfg.Sources) == 0 && len(sessionCfg.Companies) == 0 {
				return fmt.Errorf("at least one source or company is required")
			}

			sessionID, err := svc.crawler.StartSession(ctx, sessionCfg)
			if err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			svc.log.Info("Crawl session started", "session_id", sessionID)

			// On SIGINT, request a graceful stop so the session is
			// finalized with the jobs collected so far.
			go func() {
				<-ctx.Done()
				svc.crawler.Stop(sessionID)
			}()

			summary, err := svc.crawler.RunSession(context.Background(), sessionID)
			if err != nil {
				return fmt.Errorf("run session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Session %s finished: status=%s jobs_found=%d jobs_saved=%d errors=%d duration=%s\n",
				summary.SessionID, summary.Status, summary.JobsFound,
				summary.JobsSaved, summary.Errors, summary.Duration)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&srcs, "sources", nil, "sources to crawl (remoteok, hackernews, indeed, linkedin, wellfound)")
	cmd.Flags().StringSliceVar(&companies, "companies", nil, "company names or career page URLs to crawl directly")
	cmd.Flags().StringSliceVar(&terms, "terms", nil, "search terms")
	cmd.Flags().StringSliceVar(&locations, "locations", nil, "locations to search in")
	cmd.Flags().IntVar(&maxJobs, "max-jobs", 0, "maximum jobs to collect in this session")

	return cmd
}
