// Package storage provides the Elasticsearch-backed job index.
package storage

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/hirewire/jobcrawl/internal/logger"
)

// Config holds the Elasticsearch connection settings.
type Config struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	APIKey    string   `mapstructure:"api_key"`
	CloudID   string   `mapstructure:"cloud_id"`
	IndexName string   `mapstructure:"index_name"`

	TLSInsecureSkipVerify bool `mapstructure:"tls_insecure_skip_verify"`
}

// NewClient creates an Elasticsearch client and verifies the connection.
func NewClient(cfg *Config, log logger.Interface) (*es.Client, error) {
	if cfg == nil {
		return nil, errors.New("elasticsearch configuration is required")
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	if len(cfg.Addresses) > 0 {
		log.Debug("Connecting to Elasticsearch", "addresses", cfg.Addresses)
	}

	client, err := es.NewClient(*createClientConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error pinging Elasticsearch: %s", res.String())
	}

	return client, nil
}

// createClientConfig builds the client configuration, preferring API key
// auth over basic auth and cloud ID over explicit addresses.
func createClientConfig(cfg *Config) *es.Config {
	clientConfig := es.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.TLSInsecureSkipVerify {
		clientConfig.Transport = &http.Transport{
			//nolint:gosec // InsecureSkipVerify is configurable for development environments
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	if cfg.APIKey != "" {
		clientConfig.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	if cfg.CloudID != "" {
		clientConfig.CloudID = cfg.CloudID
	}

	return &clientConfig
}
