// Package config provides centralized configuration management for the MCP AGE bridge.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/machinae-labs/mcp-server-age-bridge/pkg/dsn"
	"github.com/machinae-labs/mcp-server-age-bridge/pkg/graph"
)

// Config holds the complete configuration for the application
type Config struct {
	// Postgres/AGE connection configuration
	Database struct {
		// Full connection string; when set it wins over the field-level values
		URL string

		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	// Identifier generation configuration
	Ident struct {
		Words     int
		Delimiter string
	}

	// Per-collection query cache configuration
	Cache struct {
		Capacity int
	}

	// Logging configuration
	Log struct {
		Level string
	}
}

var (
	once   sync.Once
	config *Config

	// AGE_PG_URL in the environment maps onto the "pg.url" key.
	envKeyReplacer = strings.NewReplacer(".", "_")
)

// Load initializes and loads the configuration from environment variables
func Load() *Config {
	once.Do(func() {
		v := viper.New()

		// Set default values
		v.SetDefault("pg.host", "localhost")
		v.SetDefault("pg.port", 5432)
		v.SetDefault("pg.user", "postgres")
		v.SetDefault("pg.dbname", "postgres")
		v.SetDefault("pg.sslmode", "disable")
		v.SetDefault("ident.words", graph.DefaultIdentWords)
		v.SetDefault("ident.delimiter", graph.DefaultIdentDelimiter)
		v.SetDefault("cache.capacity", 100)
		v.SetDefault("log.level", "info")

		// Load from environment variables, AGE_PG_URL style
		v.SetEnvPrefix("age")
		v.SetEnvKeyReplacer(envKeyReplacer)
		v.AutomaticEnv()

		// Map environment variables to config structure
		config = &Config{}

		config.Database.URL = v.GetString("pg.url")
		config.Database.Host = v.GetString("pg.host")
		config.Database.Port = v.GetInt("pg.port")
		config.Database.User = v.GetString("pg.user")
		config.Database.Password = v.GetString("pg.password")
		config.Database.Name = v.GetString("pg.dbname")
		config.Database.SSLMode = v.GetString("pg.sslmode")

		config.Ident.Words = v.GetInt("ident.words")
		config.Ident.Delimiter = v.GetString("ident.delimiter")

		config.Cache.Capacity = v.GetInt("cache.capacity")

		config.Log.Level = v.GetString("log.level")
	})

	return config
}

// DataSourceName assembles the Postgres connection string, preferring the
// full URL when one is configured. A URL without an sslmode parameter
// inherits the configured one, since lib/pq defaults to requiring TLS.
func (c *Config) DataSourceName() (dsn.DataSourceName, error) {
	if c.Database.URL != "" {
		d, err := dsn.Parse(c.Database.URL)
		if err != nil {
			return d, err
		}

		if _, ok := dsn.QueryValue(d.Query, "sslmode"); !ok && c.Database.SSLMode != "" {
			d.Query = append(d.Query, dsn.Pair{Key: "sslmode", Value: c.Database.SSLMode})
		}

		return d, nil
	}

	d := dsn.DataSourceName{
		Driver:   "postgres",
		Username: c.Database.User,
		Password: c.Database.Password,
		Hostname: c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
	}
	if c.Database.SSLMode != "" {
		d.Query = append(d.Query, dsn.Pair{Key: "sslmode", Value: c.Database.SSLMode})
	}

	return d, nil
}

// Validate checks if all required configuration values are set
func (c *Config) Validate() error {
	// List of validation errors
	var errors []string

	if c.Database.URL != "" {
		if _, err := dsn.Parse(c.Database.URL); err != nil {
			errors = append(errors, fmt.Sprintf("database URL is not parseable: %v", err))
		}
	} else {
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			errors = append(errors, "database host, user and dbname are required when no URL is set")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errors = append(errors, "database port "+strconv.Itoa(c.Database.Port)+" is out of range")
		}
	}

	if c.Ident.Words < 1 || c.Ident.Words > 10 {
		errors = append(errors, "ident words must be between 1 and 10")
	}
	if c.Ident.Delimiter == "" {
		errors = append(errors, "ident delimiter must not be empty")
	}

	if c.Cache.Capacity < 1 {
		errors = append(errors, "cache capacity must be positive")
	}

	// If any errors were found, return them as a combined error
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
