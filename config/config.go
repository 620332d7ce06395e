// Package config loads named database connections for coconutdal.
//
// Configuration is read with viper from a .coconutdal.yaml file, environment
// variables prefixed with COCONUTDAL_ and optional .env / .env.local files:
//
//	version: "1.0"
//	database:
//	  use_name: main
//	  use_suffix: _dev
//	  connections:
//	    - name: main_dev
//	      variant: embedded
//	      connection_string: file:dev.db
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration is read from.
var AppFs = afero.NewOsFs()

const (
	// FileName is the configuration file name without extension.
	FileName = ".coconutdal"
	// EnvPrefix prefixes environment overrides, e.g. COCONUTDAL_DATABASE_USE_NAME.
	EnvPrefix = "COCONUTDAL"
	// DefaultVersion is assumed when the file has no version key.
	DefaultVersion = "1.0"
	// SupportedVersions is the accepted range of configuration versions.
	SupportedVersions = ">= 1.0, < 2.0"
)

var (
	// ErrNoDatabaseSection is returned when the configuration has no database element.
	ErrNoDatabaseSection = errors.New("configuration missing or does not contain a database element")
	// ErrNoConnections is returned when the database element lists no connections.
	ErrNoConnections = errors.New("configuration does not contain any connections")
	// ErrUnsupportedVersion is returned for a version outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported configuration version")
)

var supported = version.MustConstraints(version.NewConstraint(SupportedVersions))

// Connection is a named connection descriptor.
type Connection struct {
	Name             string `mapstructure:"name" yaml:"name" json:"name"`
	ConnectionString string `mapstructure:"connection_string" yaml:"connection_string" json:"connection_string"`
	Variant          string `mapstructure:"variant" yaml:"variant" json:"variant"`
	Driver           string `mapstructure:"driver" yaml:"driver,omitempty" json:"driver,omitempty"`
}

// Config is the loaded configuration.
type Config struct {
	Version     string       `yaml:"version" json:"version"`
	UseName     string       `yaml:"use_name,omitempty" json:"use_name,omitempty"`
	UseSuffix   string       `yaml:"use_suffix,omitempty" json:"use_suffix,omitempty"`
	Connections []Connection `yaml:"connections" json:"connections"`

	// File is the configuration file that was read, if any.
	File string `yaml:"-" json:"-"`
}

// Load reads configuration from path, or searches the default locations
// when path is empty.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "coconutdal"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("version", DefaultVersion)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		debug.Debug("config: no configuration file found")
	}
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version:   v.GetString("version"),
		UseName:   v.GetString("database.use_name"),
		UseSuffix: v.GetString("database.use_suffix"),
		File:      v.ConfigFileUsed(),
	}
	if err := checkVersion(cfg.Version); err != nil {
		return nil, err
	}
	if !v.IsSet("database") {
		return nil, dalerr.New(dalerr.Validation, "config", ErrNoDatabaseSection)
	}
	if err := v.UnmarshalKey("database.connections", &cfg.Connections); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}
	if len(cfg.Connections) == 0 {
		return nil, dalerr.New(dalerr.Validation, "config", ErrNoConnections)
	}
	for i := range cfg.Connections {
		cfg.Connections[i].ConnectionString = os.ExpandEnv(cfg.Connections[i].ConnectionString)
	}
	debug.Debug("config: loaded", "file", cfg.File, "connections", len(cfg.Connections))
	return cfg, nil
}

// Lookup returns the connection registered under name. An empty name uses
// UseName; UseSuffix is appended in both cases. When nothing matches, the
// first connection is returned.
func (c *Config) Lookup(name string) (*Connection, error) {
	if len(c.Connections) == 0 {
		return nil, dalerr.New(dalerr.Validation, "config", ErrNoConnections)
	}
	key := name
	if key == "" {
		key = c.UseName
	}
	key += c.UseSuffix

	for i := range c.Connections {
		if c.Connections[i].Name == key {
			return &c.Connections[i], nil
		}
	}
	debug.Debug("config: falling back to first connection", "key", key, "name", c.Connections[0].Name)
	return &c.Connections[0], nil
}

// Names returns the configured connection names in file order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Connections))
	for i, conn := range c.Connections {
		names[i] = conn.Name
	}
	return names
}

func checkVersion(raw string) error {
	ver, err := version.NewVersion(raw)
	if err != nil {
		return dalerr.New(dalerr.Validation, "config", fmt.Errorf("%w: %q", ErrUnsupportedVersion, raw))
	}
	if !supported.Check(ver) {
		return dalerr.New(dalerr.Validation, "config",
			fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, ver, SupportedVersions))
	}
	return nil
}

// loadDotEnv loads .env and then .env.local, the latter taking precedence.
func loadDotEnv() {
	if _, err := AppFs.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			debug.Warn("config: failed to load .env", "error", err)
		}
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			debug.Warn("config: failed to load .env.local", "error", err)
		}
	}
}
