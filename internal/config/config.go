package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	// EnvPrefix is the prefix of the dashboard environment variables.
	EnvPrefix = "RBACVIEW"
	// BackendEnvPrefix is the prefix of the reference backend environment variables.
	BackendEnvPrefix = "RBACVIEW_BACKEND"

	// DefaultBackendURL is the fixed REST backend the dashboard talks to.
	DefaultBackendURL = "http://localhost:8080"
)

// Config defines the parameters of the dashboard and the CLI.
type Config struct {
	Listen     string `default:"127.0.0.1:10443"`
	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:8080"`
	StatePath  string `split_words:"true"`
	LogLevel   string `default:"INFO" split_words:"true"`
	Open       bool   `default:"true"`

	// How long a page waits for its list before rendering the loading placeholder.
	LoadingGrace time.Duration `default:"300ms" split_words:"true"`
	PageSize     int           `default:"10" split_words:"true"`

	// Zero keeps cached lists until a mutation invalidates them.
	CacheTTL time.Duration `default:"0s" split_words:"true"`
}

// BackendConfig defines the parameters of the reference REST backend.
type BackendConfig struct {
	Listen     string `default:"127.0.0.1:8080"`
	Token      string
	StatePath  string `split_words:"true"`
	LogLevel   string `default:"INFO" split_words:"true"`
	Kubeconfig string `envconfig:"KUBECONFIG"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, err
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath("state.db")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return cfg, nil
}

func LoadBackend() (*BackendConfig, error) {
	cfg := &BackendConfig{}
	if err := envconfig.Process(BackendEnvPrefix, cfg); err != nil {
		return nil, err
	}
	if cfg.StatePath == "" {
		cfg.StatePath = defaultStatePath("backend.db")
	}
	return cfg, nil
}

func defaultStatePath(file string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "rbacview", file)
	}
	return filepath.Join(home, ".rbacview", file)
}

// ConfigureLogging sets the logrus level and formatter. Unknown levels fall
// back to info.
func ConfigureLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
