// Package cmd implements the jobcrawl command line interface.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jobcrawl",
	Short: "Job board crawler and extraction pipeline",
	Long: `jobcrawl crawls job boards and company career pages, extracts
structured job postings and stores them in Elasticsearch. Crawl sessions
are tracked in PostgreSQL and can be driven one-shot from the CLI, on a
schedule, or through the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("bind debug flag: %w", err)
	}

	rootCmd.AddCommand(newCrawlCmd())
	rootCmd.AddCommand(newHTTPDCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.Execute()
}

// initConfig wires viper to the config file and the environment. Every key
// can be overridden with an underscore-joined env var, e.g.
// ELASTICSEARCH_ADDRESSES or DATABASE_HOST.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()
	bindEnvVars()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config file: %v\n", err)
		}
	}
}

// setDefaults seeds viper with the defaults for every component.
func setDefaults() {
	defaults := map[string]any{
		"app.name":        "jobcrawl",
		"app.environment": "development",
		"app.debug":       false,

		"logger.level":        "info",
		"logger.development":  false,
		"logger.encoding":     "console",
		"logger.output_paths": []string{"stdout"},

		"server.address":       ":8080",
		"server.read_timeout":  "15s",
		"server.write_timeout": "30s",
		"server.idle_timeout":  "60s",

		"elasticsearch.addresses":  []string{"http://localhost:9200"},
		"elasticsearch.index_name": "jobs",

		"database.host":     "localhost",
		"database.port":     "5432",
		"database.user":     "jobcrawl",
		"database.password": "",
		"database.dbname":   "jobcrawl",
		"database.sslmode":  "disable",

		"crawler.user_agent":       "JobCrawlBot/1.0",
		"crawler.robots_cache_ttl": "24h",
		"crawler.instance":         0,
		"crawler.sources":          []string{"remoteok", "hackernews"},
		"crawler.search_terms":     []string{},
		"crawler.locations":        []string{},
		"crawler.companies":        []string{},
		"crawler.max_jobs":         50,

		"scheduler.enabled":          false,
		"scheduler.crawl_schedule":   "0 */6 * * *",
		"scheduler.cleanup_schedule": "0 2 * * *",
		"scheduler.retention_days":   30,
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}

// bindEnvVars binds the well-known deployment env vars explicitly so they
// work even before the key is set anywhere else.
func bindEnvVars() {
	bindings := map[string]string{
		"elasticsearch.addresses":  "ELASTICSEARCH_ADDRESSES",
		"elasticsearch.username":   "ELASTICSEARCH_USERNAME",
		"elasticsearch.password":   "ELASTICSEARCH_PASSWORD",
		"elasticsearch.api_key":    "ELASTICSEARCH_API_KEY",
		"elasticsearch.cloud_id":   "ELASTICSEARCH_CLOUD_ID",
		"elasticsearch.index_name": "ELASTICSEARCH_INDEX_NAME",

		"database.host":     "DATABASE_HOST",
		"database.port":     "DATABASE_PORT",
		"database.user":     "DATABASE_USER",
		"database.password": "DATABASE_PASSWORD",
		"database.dbname":   "DATABASE_DBNAME",
		"database.sslmode":  "DATABASE_SSLMODE",

		"crawler.user_agent": "CRAWLER_USER_AGENT",
		"server.address":     "SERVER_ADDRESS",
	}

	for key, envVar := range bindings {
		if err := viper.BindEnv(key, envVar); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not bind %s: %v\n", envVar, err)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jobcrawl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jobcrawl %s\n", Version)
		},
	}
}
