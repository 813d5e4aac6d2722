package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name" env:"SCREENER_NAME" env-default:"market-screener"`
	Host     string          `yaml:"host" env:"SCREENER_HOST" env-default:"127.0.0.1"`
	Port     int             `yaml:"port" env:"SCREENER_PORT" env-default:"8080"`
	LogLevel string          `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	GrpcHost string          `yaml:"grpc_host" env:"GRPC_HOST" env-default:"127.0.0.1"`
	GrpcPort int             `yaml:"grpc_port" env:"GRPC_PORT" env-default:"50051"`
	Metrics  bool            `yaml:"metrics" env:"METRICS_ENABLED" env-default:"true"`
	Provider MProviderConfig `yaml:"provider"`
	Storage  MStorageConfig  `yaml:"storage"`
	Network  MNetworkConfig  `yaml:"network"`
	Screener MScreenerConfig `yaml:"screener"`
	Symbols  []string        `yaml:"symbols"`
	// UniverseFile, when set, replaces Symbols with the Ticker column of a
	// .csv or .xlsx file.
	UniverseFile string `yaml:"universe_file" env:"UNIVERSE_FILE"`
}

type MProviderConfig struct {
	Type                 string `yaml:"type" env:"PROVIDER_TYPE" env-default:"yahoo"`
	IncludeExtendedHours bool   `yaml:"include_extended_hours"`
	ParquetDir           string `yaml:"parquet_dir" env:"PARQUET_DIR"`
	Cache                bool   `yaml:"cache" env:"PROVIDER_CACHE"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type" env:"DB_TYPE" env-default:"sqlite"`
	DBPath             string `yaml:"db_path" env:"DB_PATH" env-default:"bars.db"`
	DBConnectionString string `yaml:"db_connection_string" env:"DB_CONNECTION_STRING"`
	Schema             string `yaml:"schema" env:"DB_SCHEMA" env-default:"screener"`
	RetentionDays      int    `yaml:"retention_days" env:"DB_RETENTION_DAYS"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout" env-default:"10"`
	MaxRetries         int      `yaml:"retries" env-default:"2"`
	ConcurrentRequests int      `yaml:"concurrent_requests" env-default:"8"`
	RequestsPerSecond  float64  `yaml:"requests_per_second" env-default:"20"`
	UserAgent          string   `yaml:"user_agent"`
}

type MScreenerConfig struct {
	BatchSize           int    `yaml:"batch_size" env-default:"200"`
	LookbackDays        int    `yaml:"lookback_days" env-default:"90"`
	BatchTimeoutSeconds int    `yaml:"batch_timeout_seconds" env-default:"60"`
	ConcurrentBatches   int    `yaml:"concurrent_batches" env-default:"1"`
	AbsentBaseline      string `yaml:"absent_baseline" env-default:"zero"`
	Market              string `yaml:"market" env-default:"xnys"`
}

// Absent-baseline policies.
const (
	AbsentBaselineZero = "zero"
	AbsentBaselineSelf = "self"
)
