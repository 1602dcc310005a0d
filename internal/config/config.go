package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App         App         `mapstructure:",squash"`
	EarthEngine EarthEngine `mapstructure:",squash"`
	Analysis    Analysis    `mapstructure:",squash"`
	Vis         Vis         `mapstructure:",squash"`
	Station     Station     `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
	RootPath string `mapstructure:"root_path"`
}

type EarthEngine struct {
	BaseURL         string        `mapstructure:"ee_base_url"`
	Project         string        `mapstructure:"ee_project"`
	CredentialsFile string        `mapstructure:"google_application_credentials"`
	Timeout         time.Duration `mapstructure:"ee_timeout"`
	Retries         int           `mapstructure:"ee_retries"`
	InitialBackoff  time.Duration `mapstructure:"ee_initial_backoff"`
	MaxBackoff      time.Duration `mapstructure:"ee_max_backoff"`
}

type Analysis struct {
	Country         string `mapstructure:"rainfall_country"`
	StartYear       int    `mapstructure:"rainfall_start_year"`
	EndYear         int    `mapstructure:"rainfall_end_year"`
	BoundaryDataset string `mapstructure:"rainfall_boundary_dataset"`
	BoundaryField   string `mapstructure:"rainfall_boundary_field"`
	BoundaryFile    string `mapstructure:"rainfall_boundary_file"`
	Dataset         string `mapstructure:"rainfall_dataset"`
	Band            string `mapstructure:"rainfall_band"`
	Scale           int    `mapstructure:"rainfall_scale"`
	Workers         int    `mapstructure:"rainfall_workers"`
	MapWidth        int    `mapstructure:"rainfall_map_width"`
	NoCache         bool   `mapstructure:"rainfall_no_cache"`
}

type Vis struct {
	Min     float64  `mapstructure:"rainfall_vis_min"`
	Max     float64  `mapstructure:"rainfall_vis_max"`
	Palette []string `mapstructure:"rainfall_vis_palette"`
}

type Station struct {
	Enabled bool   `mapstructure:"station_compare_enabled"`
	URL     string `mapstructure:"station_archive_url"`
	Retries int    `mapstructure:"station_retries"`
}

func SetDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ROOT_PATH", ".")

	viper.SetDefault("EE_BASE_URL", "https://earthengine.googleapis.com/v1")
	viper.SetDefault("EE_PROJECT", "")
	viper.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	viper.SetDefault("EE_TIMEOUT", "2m")
	viper.SetDefault("EE_RETRIES", 5)
	viper.SetDefault("EE_INITIAL_BACKOFF", "2s")
	viper.SetDefault("EE_MAX_BACKOFF", "30s")

	viper.SetDefault("RAINFALL_COUNTRY", "Nigeria")
	viper.SetDefault("RAINFALL_START_YEAR", 2018)
	viper.SetDefault("RAINFALL_END_YEAR", 2024)
	viper.SetDefault("RAINFALL_BOUNDARY_DATASET", "FAO/GAUL/2015/level0")
	viper.SetDefault("RAINFALL_BOUNDARY_FIELD", "ADM0_NAME")
	viper.SetDefault("RAINFALL_BOUNDARY_FILE", "")
	viper.SetDefault("RAINFALL_DATASET", "UCSB-CHG/CHIRPS/DAILY")
	viper.SetDefault("RAINFALL_BAND", "precipitation")
	viper.SetDefault("RAINFALL_SCALE", 5000)
	viper.SetDefault("RAINFALL_WORKERS", 8)
	viper.SetDefault("RAINFALL_MAP_WIDTH", 1024)
	viper.SetDefault("RAINFALL_NO_CACHE", false)

	viper.SetDefault("RAINFALL_VIS_MIN", 0)
	viper.SetDefault("RAINFALL_VIS_MAX", 300)
	viper.SetDefault("RAINFALL_VIS_PALETTE", "lightblue,blue,yellow,orange,red")

	viper.SetDefault("STATION_COMPARE_ENABLED", false)
	viper.SetDefault("STATION_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/archive")
	viper.SetDefault("STATION_RETRIES", 3)
}

// NewConfig loads .env (if any), applies defaults and environment overrides.
func NewConfig() (*Config, error) {
	loadEnvFile()

	SetDefaults()
	viper.AutomaticEnv()

	config := &Config{}
	err := viper.Unmarshal(config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.Analysis.EndYear < c.Analysis.StartYear {
		return fmt.Errorf("RAINFALL_END_YEAR (%d) must not be before RAINFALL_START_YEAR (%d)", c.Analysis.EndYear, c.Analysis.StartYear)
	}
	if c.Vis.Max <= c.Vis.Min {
		return fmt.Errorf("RAINFALL_VIS_MAX (%v) must be greater than RAINFALL_VIS_MIN (%v)", c.Vis.Max, c.Vis.Min)
	}
	if len(c.Vis.Palette) < 2 {
		return fmt.Errorf("RAINFALL_VIS_PALETTE needs at least two colours")
	}
	if c.Analysis.Scale <= 0 {
		return fmt.Errorf("RAINFALL_SCALE must be positive")
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = 1
	}
	if c.Analysis.Country == "" && c.Analysis.BoundaryFile == "" {
		return fmt.Errorf("either RAINFALL_COUNTRY or RAINFALL_BOUNDARY_FILE is required")
	}
	return nil
}

// ConfigureLogging applies LOG_LEVEL to logrus.
func (c *Config) ConfigureLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})
	level, err := logrus.ParseLevel(c.App.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", c.App.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("could not resolve working directory: ", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "../.env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Debug("loaded .env from ", location)
			return
		}
	}
	logrus.Debug("no .env file found, using environment only")
}
