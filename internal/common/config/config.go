package config

import "fmt"

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Server        ServerConfig            `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	Username           string   `mapstructure:"username"`
	Password           string   `mapstructure:"password"`
	RecommendationsIdx string   `mapstructure:"recommendations_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// MatchingConfig mirrors matching.Settings. Zero values fall back to the
// engine defaults in applyDefaults. Pointer fields are scores where 0 is a
// legal setting, so nil means unset.
type MatchingConfig struct {
	Weights struct {
		Category    float64 `mapstructure:"category"`
		Value       float64 `mapstructure:"value"`
		Level       float64 `mapstructure:"level"`
		Workload    float64 `mapstructure:"workload"`
		Performance float64 `mapstructure:"performance"`
	} `mapstructure:"weights"`
	AutoAssignThreshold     *int    `mapstructure:"auto_assign_threshold"`
	SeniorBandMismatchScore *int    `mapstructure:"senior_band_mismatch_score"`
	OtherBandMismatchScore  *int    `mapstructure:"other_band_mismatch_score"`
	JuniorPriceCeiling      int64   `mapstructure:"junior_price_ceiling"`
	SeniorPriceFloor        int64   `mapstructure:"senior_price_floor"`
	DefaultLimit            int     `mapstructure:"default_limit"`
	FetchConcurrency        int     `mapstructure:"fetch_concurrency"`
	LowWorkloadBelow        float64 `mapstructure:"low_workload_below"`
	MediumWorkloadBelow     float64 `mapstructure:"medium_workload_below"`
	ExcellentConversionMin  float64 `mapstructure:"excellent_conversion_min"`
	GoodConversionMin       float64 `mapstructure:"good_conversion_min"`
	DecisionCacheTTL        int     `mapstructure:"decision_cache_ttl"` // milliseconds
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Events struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"events"`
	Email struct {
		Enabled     bool   `mapstructure:"enabled"`
		FromEmail   string `mapstructure:"from_email"`
		TriageEmail string `mapstructure:"triage_email"`
	} `mapstructure:"email"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}
