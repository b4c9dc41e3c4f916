// Package config resolves server settings from flags, environment, an
// optional .env file and an optional config file.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/d-kuro/todo-mcp/internal/errors"
	"github.com/d-kuro/todo-mcp/internal/logging"
	"github.com/d-kuro/todo-mcp/internal/security"
	"github.com/d-kuro/todo-mcp/internal/storage"
)

// Setting keys. Each is bound to the environment variable and flag listed
// in bindings.
const (
	KeyDB               = "db"
	KeyDriver           = "driver"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyAutosaveInterval = "autosave_interval"
	KeyAllowedDirs      = "allowed_dirs"
	KeyBlockedDirs      = "blocked_dirs"
)

// Defaults.
const (
	DefaultDB        = "todos.db"
	DefaultLogLevel  = "info"
	DefaultLogFormat = logging.FormatText
)

type binding struct {
	key  string
	env  string
	flag string
}

var bindings = []binding{
	{key: KeyDB, env: "DB", flag: "db"},
	{key: KeyDriver, env: "DB_DRIVER", flag: "driver"},
	{key: KeyLogLevel, env: "LOG_LEVEL", flag: "log-level"},
	{key: KeyLogFormat, env: "LOG_FORMAT", flag: "log-format"},
	{key: KeyAutosaveInterval, env: "AUTOSAVE_INTERVAL", flag: "autosave-interval"},
	{key: KeyAllowedDirs, env: "ALLOWED_DIRS"},
	{key: KeyBlockedDirs, env: "BLOCKED_DIRS"},
}

// Config holds the resolved settings.
type Config struct {
	// DB is the absolute path of the store file.
	DB               string
	Driver           string
	LogLevel         string
	LogFormat        string
	AutosaveInterval time.Duration
	// AllowedDirs, when not empty, are the only directories the store may live in.
	AllowedDirs []string
	// BlockedDirs are refused in addition to the built-in system directories.
	BlockedDirs []string
	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// Logger creates the logger described by c.
func (c *Config) Logger() *logging.Logger {
	return logging.New(logging.Options{Level: c.LogLevel, Format: c.LogFormat})
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// Flags is bound to the settings by flag name. Only flags the user set
	// take precedence over the environment.
	Flags *pflag.FlagSet
	// ConfigFile is an explicit config file. It must exist when set.
	ConfigFile string
	// ConfigPaths are searched for todo-mcp.{yaml,json,toml} when
	// ConfigFile is empty. A missing file there is not an error.
	ConfigPaths []string
	// EnvFile is loaded into the process environment before resolving.
	// Existing variables are not overridden. A missing file is ignored.
	EnvFile string
	// Validator checks the store path. Defaults to security.NewDefaultValidator
	// restricted by the allowed_dirs and blocked_dirs settings.
	Validator security.Validator
}

// DefaultConfigPaths returns the directories searched for a config file.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "todo-mcp"))
	}
	return paths
}

// RegisterFlags adds the setting flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("db", DefaultDB, "Path of the todo store file (env DB)")
	fs.String("driver", "", "Storage driver: sqlite or json, inferred from the file extension when empty (env DB_DRIVER)")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warn or error (env LOG_LEVEL)")
	fs.String("log-format", DefaultLogFormat, "Log format on stderr: text or json (env LOG_FORMAT)")
	fs.String("autosave-interval", storage.DefaultAutosaveInterval.String(), "Autosave interval, 0 disables it (env AUTOSAVE_INTERVAL)")
}

// Load resolves the configuration. Precedence from highest to lowest is
// explicit flags, environment, config file, defaults.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Configuration("failed to load %s: %v", envFile, err)
	}

	v := viper.New()
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyDriver, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyAutosaveInterval, storage.DefaultAutosaveInterval.String())

	for _, b := range bindings {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, errors.Configuration("failed to bind %s: %v", b.env, err)
		}
		if opts.Flags == nil || b.flag == "" {
			continue
		}
		if flag := opts.Flags.Lookup(b.flag); flag != nil {
			if err := v.BindPFlag(b.key, flag); err != nil {
				return nil, errors.Configuration("failed to bind --%s: %v", b.flag, err)
			}
		}
	}

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	cfg := &Config{
		DB:          strings.TrimSpace(v.GetString(KeyDB)),
		Driver:      strings.ToLower(strings.TrimSpace(v.GetString(KeyDriver))),
		LogLevel:    strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		LogFormat:   strings.ToLower(strings.TrimSpace(v.GetString(KeyLogFormat))),
		AllowedDirs: dirList(v.GetStringSlice(KeyAllowedDirs)),
		BlockedDirs: dirList(v.GetStringSlice(KeyBlockedDirs)),
		ConfigFile:  v.ConfigFileUsed(),
	}

	interval, err := ParseInterval(v.GetString(KeyAutosaveInterval))
	if err != nil {
		return nil, err
	}
	cfg.AutosaveInterval = interval

	validator := opts.Validator
	if validator == nil {
		validator, err = cfg.pathValidator()
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(validator); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, opts LoadOptions) error {
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Configuration("failed to read config file %s: %v", opts.ConfigFile, err)
		}
		return nil
	}

	if len(opts.ConfigPaths) == 0 {
		return nil
	}

	v.SetConfigName("todo-mcp")
	for _, p := range opts.ConfigPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Configuration("failed to read config file: %v", err)
		}
	}
	return nil
}

// ParseInterval parses an autosave interval. A bare integer is read as
// milliseconds; anything else must be a Go duration such as "10s".
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return storage.DefaultAutosaveInterval, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, errors.Configuration("autosave interval must not be negative: %s", s)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Configuration("invalid autosave interval %q: %v", s, err)
	}
	if d < 0 {
		return 0, errors.Configuration("autosave interval must not be negative: %s", s)
	}
	return d, nil
}

// dirList flattens directory settings. An environment value holds one
// string that may list several directories separated by the OS path list
// separator, while a config file may give a list.
func dirList(values []string) []string {
	var dirs []string
	for _, value := range values {
		for _, dir := range filepath.SplitList(value) {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// pathValidator builds the store path validator from the directory settings.
// Relative directories are resolved against the working directory.
func (c *Config) pathValidator() (*security.DefaultValidator, error) {
	allowed, err := absDirs(c.AllowedDirs)
	if err != nil {
		return nil, err
	}
	blocked, err := absDirs(c.BlockedDirs)
	if err != nil {
		return nil, err
	}
	c.AllowedDirs, c.BlockedDirs = allowed, blocked
	return security.NewDefaultValidator().WithAllowedPaths(allowed).WithBlockedPaths(blocked), nil
}

func absDirs(dirs []string) ([]string, error) {
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, errors.Configuration("invalid directory %q: %v", dir, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

// InferDriver picks the storage driver for path: json for a .json file,
// sqlite otherwise.
func InferDriver(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return storage.DriverJSON
	}
	return storage.DriverSQLite
}

func (c *Config) validate(validator security.Validator) error {
	if c.DB == "" {
		return errors.Configuration("store path cannot be empty")
	}
	path, err := validator.SanitizePath(c.DB)
	if err != nil {
		return errors.Configuration("invalid store path %s: %v", c.DB, err)
	}
	c.DB = path

	if c.Driver == "" {
		c.Driver = InferDriver(c.DB)
	}
	if !slices.Contains(storage.Drivers(), c.Driver) {
		return errors.Configuration("unknown storage driver %q (supported: %v)", c.Driver, storage.Drivers())
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Configuration("invalid log level %q", c.LogLevel)
	}

	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON:
	default:
		return errors.Configuration("invalid log format %q, must be text or json", c.LogFormat)
	}

	return nil
}
