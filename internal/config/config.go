package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/krisalay/storekit/engine"
	"github.com/krisalay/storekit/eviction"
	"github.com/krisalay/storekit/writepolicy"
)

// Environment variables read by Load. Each one overrides the file.
const (
	EnvConfig    = "STOREKIT_CONFIG"
	EnvCacheDir  = "STOREKIT_CACHE_DIR"
	EnvCapacity  = "STOREKIT_CACHE_CAPACITY"
	EnvPolicy    = "STOREKIT_CACHE_POLICY"
	EnvWriteMode = "STOREKIT_WRITE_MODE"
)

// FileName is the config file looked up in the standard locations.
const FileName = "storekit.yaml"

type Cache struct {
	Dir      string `yaml:"dir"`
	Capacity int    `yaml:"capacity"`
	Policy   string `yaml:"policy"`
	Region   string `yaml:"region"`
}

type Write struct {
	Mode   string `yaml:"mode"`
	Buffer int    `yaml:"buffer"`
}

// Config is the whole storekit configuration.
type Config struct {
	// Source is the file the config was read from, empty when defaults only.
	Source string `yaml:"-"`

	Cache Cache `yaml:"cache"`
	Write Write `yaml:"write"`
}

func Default() Config {
	return Config{
		Cache: Cache{
			Capacity: engine.DefaultCapacity,
			Policy:   string(eviction.LRU),
			Region:   "data",
		},
		Write: Write{
			Mode:   string(writepolicy.WriteThrough),
			Buffer: writepolicy.DefaultBuffer,
		},
	}
}

/*
Load builds the configuration.

Defaults come first, then the file at path (or, when path is empty, the
first storekit.yaml found by getConfigPath), then environment overrides.
A missing file is fine; a file that exists but does not parse is not.
*/
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := getConfigPath()
		if err != nil {
			log.Debugf("%s, using defaults", err)
		}
		path = p
	}

	if path != "" {
		bytes, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debugf("config file %s not found, using defaults", path)
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(bytes, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg.Source = path
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv(EnvCapacity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCapacity, err)
		}
		c.Cache.Capacity = n
	}
	if v := os.Getenv(EnvPolicy); v != "" {
		c.Cache.Policy = v
	}
	if v := os.Getenv(EnvWriteMode); v != "" {
		c.Write.Mode = v
	}
	return nil
}

// Validate checks the values Load cannot fix on its own.
func (c Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	switch c.WriteMode() {
	case writepolicy.WriteThrough, writepolicy.WriteBack:
	default:
		return fmt.Errorf("unknown write.mode %q", c.Write.Mode)
	}
	return nil
}

func (c Config) Policy() (eviction.PolicyType, error) {
	return eviction.ParsePolicyType(c.Cache.Policy)
}

func (c Config) WriteMode() writepolicy.Mode {
	return writepolicy.Mode(strings.ToLower(c.Write.Mode))
}

func getConfigPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}

	candidates := []string{
		os.Getenv("XDG_CONFIG_HOME"),
		os.Getenv("APPDATA"),
		os.Getenv("HOME"),
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		file := filepath.Join(c, FileName)
		if fileInfo, err := os.Stat(file); err == nil {
			if !fileInfo.IsDir() {
				log.Debugf("using config file: %s", file)
				return file, nil
			}
		}
	}
	return "", fmt.Errorf("no config file found in standard locations")
}
