// Package config loads process configuration from an optional YAML file and
// PATHWAY_* environment variables. Environment values win over the file and
// defaults fill whatever neither sets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/logging"
)

// ResultsDriver identifies the stored-result repository implementation.
type ResultsDriver string

const (
	ResultsMemory   ResultsDriver = "memory"
	ResultsSQLite   ResultsDriver = "sqlite"
	ResultsPostgres ResultsDriver = "postgres"
	ResultsBadger   ResultsDriver = "badger"
	ResultsBlob     ResultsDriver = "blob"
)

// MetricsBackend identifies the metrics recorder.
type MetricsBackend string

const (
	MetricsPrometheus MetricsBackend = "prometheus"
	MetricsExpvar     MetricsBackend = "expvar"
	MetricsNone       MetricsBackend = "none"
)

// Snapshot locates the precomputed analysis data.
type Snapshot struct {
	Key      string        `yaml:"key"`
	LoadWait time.Duration `yaml:"load_wait"`
}

// Results configures persistence and caching of stored results.
type Results struct {
	Driver      ResultsDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	BadgerPath  string        `yaml:"badger_path"`
	CacheSize   int           `yaml:"cache_size"`
}

// Analysis configures the enrichment engine.
type Analysis struct {
	ReferenceTaxID string `yaml:"reference_tax_id"`
}

// Interactors locates the interaction database used when importing snapshots.
type Interactors struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Config is the full process configuration.
type Config struct {
	Snapshot    Snapshot       `yaml:"snapshot"`
	Blob        blob.Config    `yaml:"blob"`
	Results     Results        `yaml:"results"`
	Analysis    Analysis       `yaml:"analysis"`
	Interactors Interactors    `yaml:"interactors"`
	Log         logging.Config `yaml:"log"`
	Metrics     MetricsBackend `yaml:"metrics"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Snapshot: Snapshot{Key: "analysis.bin", LoadWait: 30 * time.Second},
		Blob:     blob.DefaultConfig(),
		Results: Results{
			Driver:     ResultsSQLite,
			SQLitePath: "./pathwaycore.db",
			BadgerPath: "./results",
			CacheSize:  64,
		},
		Analysis: Analysis{ReferenceTaxID: "9606"},
		Log:      logging.DefaultConfig(),
		Metrics:  MetricsPrometheus,
	}
}

// Load reads the file named by PATHWAY_CONFIG (when set), applies the
// environment and validates the result.
func Load() (Config, error) {
	return LoadFile(os.Getenv("PATHWAY_CONFIG"))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Snapshot.Key, "PATHWAY_SNAPSHOT_KEY")
	if err := setDuration(&cfg.Snapshot.LoadWait, "PATHWAY_LOAD_WAIT"); err != nil {
		return err
	}

	if v, ok := lookup("PATHWAY_BLOB_DRIVER"); ok {
		cfg.Blob.Driver = blob.Driver(v)
	}
	setString(&cfg.Blob.FSRoot, "PATHWAY_BLOB_FS_ROOT")
	setString(&cfg.Blob.S3.Bucket, "PATHWAY_BLOB_S3_BUCKET")
	setString(&cfg.Blob.S3.Prefix, "PATHWAY_BLOB_S3_PREFIX")
	setString(&cfg.Blob.S3.Region, "PATHWAY_BLOB_S3_REGION")
	setString(&cfg.Blob.S3.Endpoint, "PATHWAY_BLOB_S3_ENDPOINT")
	setString(&cfg.Blob.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.Blob.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.Blob.S3.SessionToken, "AWS_SESSION_TOKEN")
	if err := setBool(&cfg.Blob.S3.PathStyle, "PATHWAY_BLOB_S3_PATH_STYLE"); err != nil {
		return err
	}

	if v, ok := lookup("PATHWAY_RESULTS_DRIVER"); ok {
		cfg.Results.Driver = ResultsDriver(strings.ToLower(v))
	}
	setString(&cfg.Results.SQLitePath, "PATHWAY_RESULTS_SQLITE_PATH")
	setString(&cfg.Results.PostgresDSN, "PATHWAY_RESULTS_POSTGRES_DSN")
	setString(&cfg.Results.BadgerPath, "PATHWAY_RESULTS_BADGER_PATH")
	if err := setInt(&cfg.Results.CacheSize, "PATHWAY_RESULTS_CACHE_SIZE"); err != nil {
		return err
	}

	setString(&cfg.Analysis.ReferenceTaxID, "PATHWAY_REFERENCE_TAXID")
	setString(&cfg.Interactors.SQLitePath, "PATHWAY_INTERACTORS_SQLITE_PATH")
	setString(&cfg.Log.Format, "PATHWAY_LOG_FORMAT")
	setString(&cfg.Log.Level, "PATHWAY_LOG_LEVEL")
	if v, ok := lookup("PATHWAY_METRICS"); ok {
		cfg.Metrics = MetricsBackend(strings.ToLower(v))
	}
	return nil
}

// Validate rejects unknown drivers and out-of-range values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Snapshot.Key) == "" {
		return fmt.Errorf("snapshot key required")
	}
	if c.Snapshot.LoadWait < 0 {
		return fmt.Errorf("load wait must not be negative")
	}
	if _, err := blob.ParseDriver(string(c.Blob.Driver)); err != nil {
		return err
	}
	switch c.Results.Driver {
	case ResultsMemory, ResultsSQLite, ResultsBadger, ResultsBlob:
	case ResultsPostgres:
		if c.Results.PostgresDSN == "" {
			return fmt.Errorf("PATHWAY_RESULTS_POSTGRES_DSN required for postgres results driver")
		}
	default:
		return fmt.Errorf("unknown results driver %s", c.Results.Driver)
	}
	if c.Results.CacheSize <= 0 {
		return fmt.Errorf("results cache size must be positive, got %d", c.Results.CacheSize)
	}
	switch c.Metrics {
	case MetricsPrometheus, MetricsExpvar, MetricsNone:
	default:
		return fmt.Errorf("unknown metrics backend %s", c.Metrics)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, name string) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, name string) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}
