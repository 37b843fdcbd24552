package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Grid   Grid   `mapstructure:"grid"`
	Logger Logger `mapstructure:"logger"`
	Server Server `mapstructure:"server"`
	Client Client `mapstructure:"client"`
}

// Grid holds the constants of the sizing table.
type Grid struct {
	TotalRange        float64   `mapstructure:"total_range" json:"total_range"`
	BaseStep          float64   `mapstructure:"base_step" json:"base_step"`
	DefaultLot        float64   `mapstructure:"default_lot" json:"default_lot"`
	UnitsPerLot       float64   `mapstructure:"units_per_lot" json:"units_per_lot"`
	ReferenceCapital  float64   `mapstructure:"reference_capital" json:"reference_capital"`
	ProfitTargets     []float64 `mapstructure:"profit_targets" json:"profit_targets"`
	InitialMultiplier float64   `mapstructure:"initial_multiplier" json:"initial_multiplier"`
	RebalancePrefix   int       `mapstructure:"rebalance_prefix" json:"rebalance_prefix"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port           int     `mapstructure:"port"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Client holds the configuration for the REST client of the HTTP API.
type Client struct {
	BaseURL        string        `mapstructure:"base_url"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultGrid returns the grid constants the calculator was tuned with.
func DefaultGrid() Grid {
	return Grid{
		TotalRange:        480,
		BaseStep:          10,
		DefaultLot:        1.0,
		UnitsPerLot:       100,
		ReferenceCapital:  1_000_000,
		ProfitTargets:     []float64{2500, 5000, 10000},
		InitialMultiplier: 2.0,
		RebalancePrefix:   5,
	}
}

// Validate checks that the grid constants can drive a calculation.
func (g Grid) Validate() error {
	switch {
	case g.TotalRange <= 0:
		return fmt.Errorf("grid.total_range must be positive, got %v", g.TotalRange)
	case g.BaseStep <= 0:
		return fmt.Errorf("grid.base_step must be positive, got %v", g.BaseStep)
	case g.DefaultLot <= 0:
		return fmt.Errorf("grid.default_lot must be positive, got %v", g.DefaultLot)
	case g.UnitsPerLot <= 0:
		return fmt.Errorf("grid.units_per_lot must be positive, got %v", g.UnitsPerLot)
	case g.ReferenceCapital <= 0:
		return fmt.Errorf("grid.reference_capital must be positive, got %v", g.ReferenceCapital)
	case g.InitialMultiplier <= 0:
		return fmt.Errorf("grid.initial_multiplier must be positive, got %v", g.InitialMultiplier)
	case g.RebalancePrefix < 0:
		return fmt.Errorf("grid.rebalance_prefix must not be negative, got %d", g.RebalancePrefix)
	}
	return nil
}

// Loader reads the configuration and optionally watches it for changes.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader looking for config.yml in path.
func NewLoader(path string) *Loader {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	grid := DefaultGrid()
	v.SetDefault("grid.total_range", grid.TotalRange)
	v.SetDefault("grid.base_step", grid.BaseStep)
	v.SetDefault("grid.default_lot", grid.DefaultLot)
	v.SetDefault("grid.units_per_lot", grid.UnitsPerLot)
	v.SetDefault("grid.reference_capital", grid.ReferenceCapital)
	v.SetDefault("grid.profit_targets", grid.ProfitTargets)
	v.SetDefault("grid.initial_multiplier", grid.InitialMultiplier)
	v.SetDefault("grid.rebalance_prefix", grid.RebalancePrefix)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)      // requests per second
	v.SetDefault("server.rate_limit_burst", 5) // burst size

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.rate_limit", 10)
	v.SetDefault("client.rate_limit_burst", 1)
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.timeout", 10*time.Second)

	return &Loader{v: v}
}

// Load reads the config file, if any, and unmarshals it on top of the defaults.
// A missing file is not an error.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.decode()
}

// ConfigFileUsed returns the path of the file that was read, empty if none.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the config file changes. The callback
// only receives configurations that pass validation; decode errors go to onError.
func (l *Loader) Watch(onChange func(Config, fsnotify.Event), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg, e)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Grid.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	return NewLoader(path).Load()
}
