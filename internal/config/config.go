// Package config loads lessonkit settings from an optional YAML file with
// LESSONKIT_* environment overrides. Command-line flags are applied on top
// by the cobra commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/lessonkit/internal/logging"
	"github.com/aretw0/lessonkit/pkg/persistence/middleware"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "lessonkit.yaml"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config holds every setting the commands share.
type Config struct {
	// Dir is the Loam repository of markdown explorations.
	Dir string `yaml:"dir"`
	// Store selects where editable snapshots live. Explorations found in
	// Dir are imported into it.
	Store     string `yaml:"store"`
	StorePath string `yaml:"store_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
	// AnswerLimit caps the answers kept per state; 0 keeps all.
	AnswerLimit int64 `yaml:"answer_limit"`
	// AnswerMask lists regular expressions whose matches are masked in
	// recorded answers.
	AnswerMask []string `yaml:"answer_mask"`
	// AnswerKey is a base64 AES-256 key sealing recorded answers.
	AnswerKey string `yaml:"answer_key"`

	Addr     string        `yaml:"addr"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	Metrics  bool          `yaml:"metrics"`
	// Watch re-imports explorations when their markdown changes.
	Watch    bool          `yaml:"watch"`
	LogLevel string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Dir:         ".",
		Store:       StoreMemory,
		RedisAddr:   "localhost:6379",
		RedisPrefix: "lessonkit:",
		AnswerLimit: 1000,
		Addr:        ":8080",
		LockTTL:     30 * time.Second,
		Metrics:     true,
		LogLevel:    "info",
	}
}

// Load layers Default, the YAML file at path and the environment. An empty
// path reads DefaultFile if it exists; a named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup("LESSONKIT_" + key); ok {
			*dst = v
		}
	}
	parse := func(key string, set func(string) error) {
		if v, ok := lookup("LESSONKIT_" + key); ok {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("LESSONKIT_%s: %w", key, err))
			}
		}
	}

	str("DIR", &c.Dir)
	str("STORE", &c.Store)
	str("STORE_PATH", &c.StorePath)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("REDIS_PREFIX", &c.RedisPrefix)
	str("ADDR", &c.Addr)
	str("LOG_LEVEL", &c.LogLevel)
	str("ANSWER_KEY", &c.AnswerKey)
	if v, ok := lookup("LESSONKIT_ANSWER_MASK"); ok {
		c.AnswerMask = strings.Split(v, ",")
	}
	parse("REDIS_DB", func(v string) (err error) {
		c.RedisDB, err = strconv.Atoi(v)
		return err
	})
	parse("ANSWER_LIMIT", func(v string) (err error) {
		c.AnswerLimit, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("LOCK_TTL", func(v string) (err error) {
		c.LockTTL, err = time.ParseDuration(v)
		return err
	})
	parse("METRICS", func(v string) (err error) {
		c.Metrics, err = strconv.ParseBool(v)
		return err
	})
	parse("WATCH", func(v string) (err error) {
		c.Watch, err = strconv.ParseBool(v)
		return err
	})
	return errors.Join(errs...)
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Store) {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("redis store needs redis_addr"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("lock_ttl must be positive, got %s", c.LockTTL))
	}
	if c.AnswerLimit < 0 {
		errs = append(errs, fmt.Errorf("answer_limit must not be negative, got %d", c.AnswerLimit))
	}
	if c.AnswerKey != "" {
		if _, err := middleware.ParseKey(c.AnswerKey); err != nil {
			errs = append(errs, fmt.Errorf("answer_key: %w", err))
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
