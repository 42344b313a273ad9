package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/patpending/traintimes/pkg/models"
	"github.com/patpending/traintimes/service"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumDepartures = 3
	DefaultInterval      = 30 * time.Second
	DefaultRequestLimit  = 5000
	DefaultLimitWindow   = 60 * time.Minute
	DefaultAddr          = ":5000"
)

type DarwinConfig struct {
	Token    string        `yaml:"token"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

type PollConfig struct {
	Interval     time.Duration `yaml:"interval" validate:"gt=0"`
	RequestLimit int           `yaml:"request_limit" validate:"gte=0"`
	LimitWindow  time.Duration `yaml:"limit_window" validate:"gt=0"`
	MaxRetries   int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// BoardConfig is one station to poll. Watched trains are resolved against this board only.
type BoardConfig struct {
	Station       string             `yaml:"station" validate:"required,len=3,alpha"`
	NumDepartures int                `yaml:"num_departures" validate:"min=1,max=10"`
	Destination   string             `yaml:"destination" validate:"omitempty,len=3,alpha"`
	Operator      string             `yaml:"operator" validate:"omitempty,len=2,alphanum"`
	Watched       []models.WatchSpec `yaml:"watched" validate:"dive"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr" validate:"required"`
	AdminToken string `yaml:"admin_token"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

type Config struct {
	Darwin DarwinConfig  `yaml:"darwin"`
	Poll   PollConfig    `yaml:"poll"`
	Boards []BoardConfig `yaml:"boards" validate:"required,min=1,dive"`
	Server ServerConfig  `yaml:"server"`
	Redis  RedisConfig   `yaml:"redis"`
}

// Default returns the configuration used when no file is given. It has no token and no board,
// so it only validates once the environment provides a station.
func Default() *Config {
	return &Config{
		Darwin: DarwinConfig{
			Endpoint: service.DarwinEndpoint,
			Timeout:  service.DefaultTimeout,
		},
		Poll: PollConfig{
			Interval:     DefaultInterval,
			RequestLimit: DefaultRequestLimit,
			LimitWindow:  DefaultLimitWindow,
			MaxRetries:   2,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Redis:  RedisConfig{Addr: "localhost:6379"},
	}
}

// Load reads the configuration and validates all of it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the YAML file at path over the defaults and applies environment overrides
// without validating. An empty path skips the file.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		conf, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		defer conf.Close()

		if err := yaml.NewDecoder(conf).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with every variable that is set and not empty. The station
// variables describe the first board and create it when the file has none.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		return v, ok && v != ""
	}

	if v, ok := env("DARWIN_API_TOKEN"); ok {
		c.Darwin.Token = v
	}

	if v, ok := env("STATION_CRS"); ok {
		if len(c.Boards) == 0 {
			c.Boards = append(c.Boards, BoardConfig{})
		}
		c.Boards[0].Station = v
	}
	if len(c.Boards) > 0 {
		if v, ok := env("NUM_DEPARTURES"); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("NUM_DEPARTURES must be a number: %w", err)
			}
			c.Boards[0].NumDepartures = n
		}
		if v, ok := env("DESTINATION_CRS"); ok {
			c.Boards[0].Destination = v
		}
	}

	if v, ok := env("PORT"); ok {
		c.Server.Addr = ":" + v
	}
	if v, ok := env("ADMIN_TOKEN"); ok {
		c.Server.AdminToken = v
	}
	if v, ok := env("REDIS_ADDR"); ok {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v, ok := env("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	for i := range c.Boards {
		b := &c.Boards[i]
		b.Station = strings.ToUpper(strings.TrimSpace(b.Station))
		b.Destination = strings.ToUpper(strings.TrimSpace(b.Destination))
		b.Operator = strings.ToUpper(strings.TrimSpace(b.Operator))
		if b.NumDepartures == 0 {
			b.NumDepartures = DefaultNumDepartures
		}
	}
}

// Validate checks the struct tags and returns a single error naming every failing field.
func (c *Config) Validate() error {
	return validate(c)
}

// ValidateDarwin checks only the upstream settings, for commands that poll nothing. Unlike
// Validate it requires a token.
func (c *Config) ValidateDarwin() error {
	if err := validator.New().Var(c.Darwin.Token, "required"); err != nil {
		return fmt.Errorf("invalid config: DarwinConfig.Token failed %q", "required")
	}
	return validate(&c.Darwin)
}

// HasToken reports whether live Darwin data can be fetched. Without a token the dashboard
// serves demo data only.
func (c *Config) HasToken() bool {
	return c.Darwin.Token != ""
}

func validate(v interface{}) error {
	err := validator.New().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, ", "))
}

// PollSetup converts the configured boards for the poller.
func (c *Config) PollSetup() *service.PollSetup {
	boards := make([]service.Board, 0, len(c.Boards))
	for _, b := range c.Boards {
		boards = append(boards, service.Board{
			Station:       b.Station,
			NumDepartures: b.NumDepartures,
			Destination:   b.Destination,
			OperatorCode:  b.Operator,
			Watched:       b.Watched,
		})
	}
	return &service.PollSetup{Boards: boards}
}

func (c *Config) PollMonitor() *service.PollMonitor {
	return service.NewPollMonitor(c.Poll.RequestLimit, c.Poll.LimitWindow, c.Poll.Interval)
}
