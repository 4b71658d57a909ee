package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sartor/db/plugins"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "SQLB"
	defaultConfigFile = "~/.sqlb.yaml"
	defaultHistory    = "~/.sqlb_history"
	dotEnvFile        = ".env"
)

// config is the resolved CLI configuration. Precedence, highest first:
// flags, SQLB_* environment (including .env), config file, defaults.
type config struct {
	Engine        string `mapstructure:"engine"`
	DSN           string `mapstructure:"dsn"`
	TablePrefix   string `mapstructure:"table_prefix"`
	ServerVersion string `mapstructure:"server_version"`
	Separator     string `mapstructure:"separator"`
	History       string `mapstructure:"history"`
	Verbose       bool   `mapstructure:"verbose"`
}

var configDefaults = map[string]any{
	"engine":         "postgres",
	"dsn":            "",
	"table_prefix":   "",
	"server_version": "",
	"separator":      " ",
	"history":        defaultHistory,
	"verbose":        false,
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"engine":         "engine",
	"dsn":            "dsn",
	"table-prefix":   "table_prefix",
	"server-version": "server_version",
	"verbose":        "verbose",
}

func registerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default "+defaultConfigFile+")")
	fs.StringP("engine", "e", "", "SQL dialect: postgres, mysql, sqlite or generic")
	fs.String("dsn", "", "database to connect to on start")
	fs.String("table-prefix", "", "replacement for % in {{%table}} markers")
	fs.String("server-version", "", "server version for version-gated syntax, e.g. 3.35.0")
	fs.BoolP("verbose", "v", false, "log compiled statements to stderr")
}

// loadConfig resolves the configuration. Files are read through fsys so
// tests can run against an in-memory filesystem.
func loadConfig(fsys afero.Fs, flags *pflag.FlagSet) (config, error) {
	var cfg config
	if err := loadDotEnv(fsys, dotEnvFile); err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetFs(fsys)
	for k, d := range configDefaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	path := defaultConfigFile
	explicit := false
	if flags != nil {
		if p, _ := flags.GetString("config"); p != "" {
			path, explicit = p, true
		}
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config path: %w", err)
	}
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return cfg, fmt.Errorf("config file: %w", err)
	}
	switch {
	case exists:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	case explicit:
		return cfg, fmt.Errorf("config file %s not found", path)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))
	if !isValidEngine(cfg.Engine) {
		return cfg, fmt.Errorf("unknown engine %q (want postgres, mysql, sqlite or generic)", cfg.Engine)
	}
	if cfg.History, err = homedir.Expand(cfg.History); err != nil {
		return cfg, fmt.Errorf("history path: %w", err)
	}
	return cfg, nil
}

// loadDotEnv exports the variables of an optional .env file. Variables
// already present in the environment win.
func loadDotEnv(fsys afero.Fs, path string) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func isValidEngine(engine string) bool {
	switch engine {
	case "postgres", "mysql", "sqlite", "generic":
		return true
	}
	return false
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// builderSettings is everything a Builder is assembled from.
type builderSettings struct {
	engine       string
	prefix       string
	separator    string
	version      *version.Version
	schema       schema.Provider
	logger       *slog.Logger
	transformers []plugins.Transformer
}

func parseServerVersion(s string) (*version.Version, error) {
	if s == "" {
		return nil, nil
	}
	v, err := version.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("server version %q: %w", s, err)
	}
	return v, nil
}

func newBuilder(s builderSettings) *visitors.Builder {
	opts := []visitors.Option{visitors.WithTablePrefix(s.prefix)}
	if s.separator != "" {
		opts = append(opts, visitors.WithSeparator(s.separator))
	}
	if s.version != nil {
		opts = append(opts, visitors.WithServerVersion(s.version))
	}
	if s.schema != nil {
		opts = append(opts, visitors.WithSchema(s.schema))
	}
	if s.logger != nil {
		opts = append(opts, visitors.WithLogger(s.logger))
	}
	if len(s.transformers) > 0 {
		opts = append(opts, visitors.WithTransformers(s.transformers...))
	}
	switch s.engine {
	case "mysql":
		return visitors.NewMySQLBuilder(opts...)
	case "sqlite":
		return visitors.NewSQLiteBuilder(opts...)
	case "generic":
		return visitors.NewGenericBuilder(opts...)
	}
	return visitors.NewPostgresBuilder(opts...)
}
