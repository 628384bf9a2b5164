package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ganot/trainlog/internal/domain/activity"
)

// Config defines the export profile: where the logbook lives, which metrics
// land in which columns, and which activities are exported at all.
type Config struct {
	Workbook WorkbookConfig    `yaml:"workbook"`
	Columns  map[string]string `yaml:"columns"`
	Filters  map[string]any    `yaml:"filters"`
	Vault    VaultConfig       `yaml:"vault"`
	Ledger   LedgerConfig      `yaml:"ledger"`
	Log      LogConfig         `yaml:"log"`
}

type WorkbookConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
	Table string `yaml:"table"`
}

type VaultConfig struct {
	Dir           string `yaml:"dir"`
	SettleSeconds int    `yaml:"settle_seconds"`
}

// Settle returns the watch-mode settle interval.
func (c VaultConfig) Settle() time.Duration {
	return time.Duration(c.SettleSeconds) * time.Second
}

type LedgerConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path falls back to TRAINLOG_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Config{
		Workbook: WorkbookConfig{
			Path:  "training-log.xlsx",
			Sheet: "Training Log",
			Table: "Trainings",
		},
		Vault: VaultConfig{
			SettleSeconds: 2,
		},
		Ledger: LedgerConfig{
			Path: "trainlog.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path == "" {
		path = os.Getenv("TRAINLOG_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if len(cfg.Columns) == 0 {
		cfg.Columns = map[string]string{
			string(activity.FieldStartTime):    "Date",
			string(activity.FieldSport):        "Sport",
			string(activity.FieldWorkoutName):  "Workout",
			string(activity.FieldDistance):     "Distance",
			string(activity.FieldTrainingLoad): "Load",
		}
	}

	if workbook := os.Getenv("TRAINLOG_WORKBOOK"); workbook != "" {
		cfg.Workbook.Path = workbook
	}
	if sheet := os.Getenv("TRAINLOG_SHEET"); sheet != "" {
		cfg.Workbook.Sheet = sheet
	}
	if table := os.Getenv("TRAINLOG_TABLE"); table != "" {
		cfg.Workbook.Table = table
	}
	if dir := os.Getenv("TRAINLOG_VAULT_DIR"); dir != "" {
		cfg.Vault.Dir = dir
	}
	if ledger := os.Getenv("TRAINLOG_LEDGER_PATH"); ledger != "" {
		cfg.Ledger.Path = ledger
	}
	if level := os.Getenv("TRAINLOG_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// ColumnMap resolves the configured columns into the typed field mapping.
// Unknown metric names are an error rather than silently exported nowhere.
func (c Config) ColumnMap() (map[activity.Field]string, error) {
	out := make(map[activity.Field]string, len(c.Columns))
	var unknown []string
	for name, header := range c.Columns {
		field := activity.Field(name)
		if !field.Valid() {
			unknown = append(unknown, name)
			continue
		}
		out[field] = header
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown metrics in columns: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// ActivityFilters resolves the configured filters into typed match rules.
// Values are coerced to the metric's type so a YAML integer can match a
// distance and a YAML timestamp can match a start time.
func (c Config) ActivityFilters() (activity.Filters, error) {
	if len(c.Filters) == 0 {
		return nil, nil
	}
	out := make(activity.Filters, len(c.Filters))
	var unknown []string
	for name, raw := range c.Filters {
		field := activity.Field(name)
		if !field.Valid() {
			unknown = append(unknown, name)
			continue
		}
		v, err := coerceFilterValue(field, raw)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
		out[field] = activity.Equals(v)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown metrics in filters: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func coerceFilterValue(field activity.Field, v any) (any, error) {
	switch field {
	case activity.FieldSport, activity.FieldWorkoutName:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want text, got %T", v)
		}
		return s, nil
	case activity.FieldDistance, activity.FieldTrainingLoad:
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case float64:
			return n, nil
		}
		return nil, fmt.Errorf("want number, got %T", v)
	case activity.FieldStartTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", time.RFC3339} {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
			return nil, fmt.Errorf("invalid timestamp %q", t)
		}
		return nil, fmt.Errorf("want timestamp, got %T", v)
	}
	return v, nil
}
