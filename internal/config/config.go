// Package config defines the predictor configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/crystalball/internal/domain/classifier"
	"github.com/okian/crystalball/internal/domain/features"
	"github.com/okian/crystalball/internal/domain/sampling"
)

// Match table sources.
const (
	SourceCSV      = "csv"
	SourceDatabase = "database"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080". Empty disables serving.
	Addr string `koanf:"addr"`

	// MatchesSource selects where the match table comes from: csv or database.
	MatchesSource string `koanf:"matches_source"`

	// MatchesPath is the provider CSV file read when MatchesSource is csv.
	MatchesPath string `koanf:"matches_path"`

	// DatabaseDriver and DatabaseDSN configure the SQL store. An empty DSN disables it.
	DatabaseDriver string `koanf:"database_driver"`
	DatabaseDSN    string `koanf:"database_dsn"`

	// RecentYears is the trailing window length of recent stats.
	RecentYears int `koanf:"recent_years"`

	// TrainFraction is the probability that a sample goes to the train set.
	TrainFraction float64 `koanf:"train_fraction"`

	// InputFeatures lists the classifier inputs in order.
	InputFeatures []string `koanf:"input_features"`

	// OutputFeature names the label column.
	OutputFeature string `koanf:"output_feature"`

	// ExcludeTies and DuplicateWithReversed shape the enriched table.
	ExcludeTies           bool `koanf:"exclude_ties"`
	DuplicateWithReversed bool `koanf:"duplicate_with_reversed"`

	// HiddenFactor sizes both hidden layers relative to the input width.
	HiddenFactor int `koanf:"hidden_factor"`

	// Backpropagation parameters.
	LearningRate float64 `koanf:"learning_rate"`
	Momentum     float64 `koanf:"momentum"`
	WeightDecay  float64 `koanf:"weight_decay"`

	// TrainIterations is the number of passes run at startup.
	TrainIterations int `koanf:"train_iterations"`

	// Seed drives initialization, splitting and shuffling. Zero picks a time-based seed.
	Seed int64 `koanf:"seed"`
}

// New creates a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		MatchesSource:         SourceCSV,
		MatchesPath:           "raw_matches.csv",
		DatabaseDriver:        DriverSQLite,
		RecentYears:           2,
		TrainFraction:         sampling.DefaultTrainFraction,
		InputFeatures:         append([]string(nil), features.DefaultInputs...),
		OutputFeature:         features.ColumnWinner,
		ExcludeTies:           true,
		DuplicateWithReversed: true,
		HiddenFactor:          classifier.DefaultHiddenFactor,
		LearningRate:          classifier.DefaultLearningRate,
		Momentum:              classifier.DefaultMomentum,
		WeightDecay:           classifier.DefaultWeightDecay,
		TrainIterations:       20,
	}
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch c.MatchesSource {
	case SourceCSV:
		if c.MatchesPath == "" {
			return invalid("matches_path must not be empty for csv source")
		}
	case SourceDatabase:
		if c.DatabaseDSN == "" {
			return invalid("database_dsn must not be empty for database source")
		}
	default:
		return invalid("unknown matches_source %q", c.MatchesSource)
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return invalid("unknown database_driver %q", c.DatabaseDriver)
	}
	if c.RecentYears < 1 {
		return invalid("recent_years must be at least 1, got %d", c.RecentYears)
	}
	if c.TrainFraction <= 0 || c.TrainFraction >= 1 {
		return invalid("train_fraction must be within (0, 1), got %g", c.TrainFraction)
	}
	if len(c.InputFeatures) == 0 {
		return invalid("input_features must not be empty")
	}
	if _, err := features.ParseAll(c.InputFeatures); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.OutputFeature == "" {
		return invalid("output_feature must not be empty")
	}
	if !c.ExcludeTies {
		return invalid("exclude_ties=false is not supported: the classifier cannot predict ties")
	}
	if c.HiddenFactor < 1 {
		return invalid("hidden_factor must be at least 1, got %d", c.HiddenFactor)
	}
	if c.LearningRate <= 0 {
		return invalid("learning_rate must be positive, got %g", c.LearningRate)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return invalid("momentum must be within [0, 1), got %g", c.Momentum)
	}
	if c.WeightDecay < 0 {
		return invalid("weight_decay must not be negative, got %g", c.WeightDecay)
	}
	if c.TrainIterations < 0 {
		return invalid("train_iterations must not be negative, got %d", c.TrainIterations)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// splitList turns a comma separated env value into trimmed, non-empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
