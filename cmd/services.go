package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"

	"github.com/hirewire/jobcrawl/internal/config"
	"github.com/hirewire/jobcrawl/internal/database"
	"github.com/hirewire/jobcrawl/internal/extract"
	"github.com/hirewire/jobcrawl/internal/logger"
	"github.com/hirewire/jobcrawl/internal/orchestrator"
	"github.com/hirewire/jobcrawl/internal/robots"
	"github.com/hirewire/jobcrawl/internal/sources"
	"github.com/hirewire/jobcrawl/internal/storage"
)

// services holds the wired application components shared by the crawl and
// httpd commands.
type services struct {
	cfg      *config.Config
	log      logger.Interface
	db       *sqlx.DB
	sessions *database.SessionRepository
	jobs     *storage.JobStore
	robots   *robots.Checker
	browser  *sources.Browser
	crawler  *orchestrator.Orchestrator
}

// buildServices loads the configuration and connects every backend.
func buildServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	esClient, err := storage.NewClient(&cfg.Elasticsearch, log)
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	jobStore := storage.NewJobStore(esClient, cfg.Elasticsearch.IndexName, log)
	if err := jobStore.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure job index: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sessionRepo := database.NewSessionRepository(db)

	checker := robots.NewChecker(nil, cfg.Crawler.UserAgent, cfg.Crawler.RobotsCacheTTL, log)

	agents := sources.NewUserAgentPool(cfg.Crawler.UserAgents, time.Now().UnixNano())
	browser := sources.NewBrowser(agents, log)

	registry := sources.NewRegistry(
		sources.NewRemoteOK("", nil, agents, log),
		sources.NewHackerNews("", nil, log),
		sources.NewIndeed(browser, log),
		sources.NewLinkedIn(browser, log),
		sources.NewWellfound(browser, log),
		sources.NewGeneric(agents, log),
	)

	crawler := orchestrator.New(
		registry,
		extract.New(log),
		checker,
		sessionRepo,
		jobStore,
		log,
		orchestrator.WithBrowser(browser),
		orchestrator.WithInstance(cfg.Crawler.Instance),
	)

	return &services{
		cfg:      cfg,
		log:      log,
		db:       db,
		sessions: sessionRepo,
		jobs:     jobStore,
		robots:   checker,
		browser:  browser,
		crawler:  crawler,
	}, nil
}

// Close releases the database connection and the shared browser.
func (s *services) Close() {
	if err := s.browser.Close(); err != nil {
		s.log.Error("Failed to close browser", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.log.Error("Failed to close database connection", "error", err)
	}
}

// buildLogger creates the zap-backed logger from the configuration. The
// --debug flag forces debug level and development mode.
func buildLogger(cfg *config.Config) (logger.Interface, error) {
	logCfg := &logger.Config{
		Level:            logger.Level(cfg.Logger.Level),
		Development:      cfg.Logger.Development,
		Encoding:         cfg.Logger.Encoding,
		OutputPaths:      cfg.Logger.OutputPaths,
		ErrorOutputPaths: logger.DefaultErrorOutputPaths,
	}
	if cfg.App.Debug {
		logCfg.Level = logger.DebugLevel
		logCfg.Development = true
	}
	return logger.New(logCfg)
}
