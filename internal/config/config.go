package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Census   CensusConfig   `yaml:"census" mapstructure:"census"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local SQLite store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CensusConfig configures the demographic attribute source.
type CensusConfig struct {
	Path        string `yaml:"path" mapstructure:"path"`                 // CSV or XLSX datapack file
	Table       string `yaml:"table" mapstructure:"table"`               // attribute table name in the store
	NameColumn  string `yaml:"name_column" mapstructure:"name_column"`   // region name column
	CodeColumn  string `yaml:"code_column" mapstructure:"code_column"`   // region code column
	YearColumn  string `yaml:"year_column" mapstructure:"year_column"`   // census year column
	MeasureCols string `yaml:"measure_cols" mapstructure:"measure_cols"` // comma-separated measure columns; empty = all numeric
}

// BoundaryConfig configures the boundary geometry source.
type BoundaryConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	URL           string `yaml:"url" mapstructure:"url"` // archive URL for the fetch command
	CodeField     string `yaml:"code_field" mapstructure:"code_field"`
	NameField     string `yaml:"name_field" mapstructure:"name_field"`
	ParentField   string `yaml:"parent_field" mapstructure:"parent_field"`
	SRID          int    `yaml:"srid" mapstructure:"srid"` // assigned when the source leaves the CRS unset
}

// PipelineConfig configures the join pipeline defaults.
type PipelineConfig struct {
	Year         int    `yaml:"year" mapstructure:"year"`
	ParentRegion string `yaml:"parent_region" mapstructure:"parent_region"`
	KeyPolicy    string `yaml:"key_policy" mapstructure:"key_policy"` // fail | skip
	TargetSRID   int    `yaml:"target_srid" mapstructure:"target_srid"`
}

// RenderConfig configures choropleth output.
type RenderConfig struct {
	Measure   string `yaml:"measure" mapstructure:"measure"`
	Classes   int    `yaml:"classes" mapstructure:"classes"`
	Method    string `yaml:"method" mapstructure:"method"` // quantile | equal
	Palette   string `yaml:"palette" mapstructure:"palette"`
	StylePath string `yaml:"style_path" mapstructure:"style_path"` // optional YAML style file
	OutDir    string `yaml:"out_dir" mapstructure:"out_dir"`
}

// FetchConfig configures archive downloads.
type FetchConfig struct {
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PostgresConfig configures the optional PostGIS export target.
type PostgresConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the dashboard server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CENSUSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "censusmap.db")
	v.SetDefault("census.table", "attributes")
	v.SetDefault("census.name_column", "region_name")
	v.SetDefault("census.code_column", "region_code")
	v.SetDefault("census.year_column", "year")
	v.SetDefault("boundary.code_field", "REGCODE")
	v.SetDefault("boundary.name_field", "REGNAME")
	v.SetDefault("boundary.parent_field", "PARENT")
	v.SetDefault("boundary.srid", 4326)
	v.SetDefault("pipeline.key_policy", "fail")
	v.SetDefault("render.measure", "persons")
	v.SetDefault("render.classes", 5)
	v.SetDefault("render.method", "quantile")
	v.SetDefault("render.palette", "viridis")
	v.SetDefault("render.out_dir", "maps")
	v.SetDefault("fetch.temp_dir", "/tmp/censusmap")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("postgres.table", "joined_regions")
	v.SetDefault("postgres.batch_size", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// MeasureColumns splits the configured measure column list.
func (c CensusConfig) MeasureColumns() []string {
	if strings.TrimSpace(c.MeasureCols) == "" {
		return nil
	}
	parts := strings.Split(c.MeasureCols, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
