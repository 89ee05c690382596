package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bornholm/go-x/slogx"
	"github.com/caarlos0/env/v11"
	"github.com/kirsle/configdir"
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const (
	AppName    = "taskmerge"
	configFile = "config.json"
	envPrefix  = "TASKMERGE_"

	keyringUser = "rest-token"

	BackendREST   = "rest"
	BackendGoogle = "google"
	BackendNone   = "none"

	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	DefaultBaseURL  = "https://jsonplaceholder.typicode.com/todos"
	DefaultTaskList = "My Tasks"
)

// Config is persisted as JSON except for Token, read from TASKMERGE_TOKEN or
// the OS keyring, and Session, which scopes the remembered filter.
type Config struct {
	Backend    string `json:"backend" env:"BACKEND"`
	BaseURL    string `json:"base_url" env:"BASE_URL"`
	Token      string `json:"-" env:"TOKEN"`
	UserID     int    `json:"user_id" env:"USER_ID"`
	FetchLimit int    `json:"fetch_limit" env:"FETCH_LIMIT"`
	TaskList   string `json:"task_list" env:"TASK_LIST"`
	Storage    string `json:"storage" env:"STORAGE"`
	DataPath   string `json:"data_path,omitempty" env:"DATA_PATH"`
	Session    string `json:"-" env:"SESSION"`

	dir string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend:    BackendREST,
		BaseURL:    DefaultBaseURL,
		UserID:     1,
		FetchLimit: 10,
		TaskList:   DefaultTaskList,
		Storage:    StorageJSON,
	}
}

// Dir is the per-user directory holding the config file, credentials and,
// by default, the task data.
func Dir() string {
	return configdir.LocalConfig(AppName)
}

func GetConfigPath() string {
	return filepath.Join(Dir(), configFile)
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string {
	if c.dir == "" {
		return Dir()
	}
	return c.dir
}

func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads the config file at path, falling back to defaults when it
// does not exist, then applies TASKMERGE_* environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	cfg.loadToken()
	return cfg, nil
}

// ReadFile returns the defaults overlaid with the config file at path only.
// Environment overrides are not applied, so the result is safe to save back.
func ReadFile(path string) (*Config, error) {
	cfg := Default()
	cfg.dir = filepath.Dir(path)

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.WithStack(err)
	default:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode config")
		}
	}

	return cfg, nil
}

func (c *Config) loadToken() {
	if c.Token != "" {
		return
	}

	token, err := keyring.Get(AppName, keyringUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("could not read token from keyring", slogx.Error(err))
		}
		return
	}
	c.Token = token
}

// StoreToken saves the REST bearer token in the OS keyring. An empty token
// removes it.
func StoreToken(token string) error {
	if token == "" {
		if err := keyring.Delete(AppName, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return errors.Wrap(err, "could not remove token from the keyring")
		}
		return nil
	}

	if err := keyring.Set(AppName, keyringUser, token); err != nil {
		return errors.Wrap(err, "could not store token in the keyring")
	}
	return nil
}

// Normalize validates the backend and storage kinds and fills empty fields
// with their defaults.
func (c *Config) Normalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = BackendREST
	case BackendREST, BackendGoogle, BackendNone:
	default:
		return errors.Errorf("unknown backend '%s'", c.Backend)
	}

	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case "":
		c.Storage = StorageJSON
	case StorageJSON, StorageSQLite:
	default:
		return errors.Errorf("unknown storage '%s'", c.Storage)
	}

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TaskList == "" {
		c.TaskList = DefaultTaskList
	}
	if c.UserID <= 0 {
		c.UserID = 1
	}
	if c.FetchLimit < 0 {
		c.FetchLimit = 0
	}
	if c.Session == "" {
		c.Session = strconv.Itoa(os.Getppid())
	}
	return nil
}

// DataFile is the task data location, derived from the storage kind unless
// data_path is set.
func (c *Config) DataFile() string {
	if c.DataPath != "" {
		return c.DataPath
	}
	if c.Storage == StorageSQLite {
		return filepath.Join(c.Dir(), "tasks.db")
	}
	return filepath.Join(c.Dir(), "tasks.json")
}

func Save(cfg *Config) error {
	return SaveTo(GetConfigPath(), cfg)
}

func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to open config file for writing")
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return errors.WithStack(encoder.Encode(cfg))
}
