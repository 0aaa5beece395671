package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// on top, expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // env overlay is optional

	return finish(v)
}

// LoadFromFile reads a single YAML file, with the same env expansion and defaults as Load.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		switch val := v.Get(key).(type) {
		case string:
			if hasEnvRef(val) {
				v.Set(key, os.ExpandEnv(val))
			}
		case []interface{}:
			items := make([]interface{}, 0, len(val))
			expanded := false
			for _, item := range val {
				if s, ok := item.(string); ok && hasEnvRef(s) {
					expanded = true
					if s = os.ExpandEnv(s); s == "" {
						continue
					}
					item = s
				}
				items = append(items, item)
			}
			if expanded {
				v.Set(key, items)
			}
		}
	}
}

// hasEnvRef reports whether s holds a ${VAR} placeholder. An unset variable
// expands to "", so required fields still trip validateConfig.
func hasEnvRef(s string) bool {
	return strings.Contains(s, "${")
}

func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Notifications.Events.TopicARN == "" {
		if val := os.Getenv("LEAD_EVENTS_TOPIC_ARN"); val != "" {
			cfg.Notifications.Events.TopicARN = val
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	addrs := cfg.Database.Elasticsearch.Addresses[:0]
	for _, a := range cfg.Database.Elasticsearch.Addresses {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	cfg.Database.Elasticsearch.Addresses = addrs
	if cfg.Database.Elasticsearch.RecommendationsIdx == "" {
		cfg.Database.Elasticsearch.RecommendationsIdx = "salesperson-recommendations"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	m := &cfg.Matching
	w := &m.Weights
	if w.Category == 0 && w.Value == 0 && w.Level == 0 && w.Workload == 0 && w.Performance == 0 {
		w.Category, w.Value, w.Level, w.Workload, w.Performance = 0.30, 0.25, 0.20, 0.15, 0.10
	}
	if m.JuniorPriceCeiling == 0 {
		m.JuniorPriceCeiling = 50000
	}
	if m.SeniorPriceFloor == 0 {
		m.SeniorPriceFloor = 100000
	}
	if m.DefaultLimit == 0 {
		m.DefaultLimit = 3
	}
	if m.FetchConcurrency == 0 {
		m.FetchConcurrency = 8
	}
	if m.LowWorkloadBelow == 0 {
		m.LowWorkloadBelow = 0.3
	}
	if m.MediumWorkloadBelow == 0 {
		m.MediumWorkloadBelow = 0.7
	}
	if m.ExcellentConversionMin == 0 {
		m.ExcellentConversionMin = 0.30
	}
	if m.GoodConversionMin == 0 {
		m.GoodConversionMin = 0.15
	}
	if m.DecisionCacheTTL == 0 {
		m.DecisionCacheTTL = 24 * 60 * 60 * 1000
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Notifications.Events.Enabled && cfg.Notifications.Events.TopicARN == "" {
		return fmt.Errorf("notifications.events.topic_arn is required when events are enabled")
	}
	if cfg.Notifications.Email.Enabled && (cfg.Notifications.Email.FromEmail == "" || cfg.Notifications.Email.TriageEmail == "") {
		return fmt.Errorf("notifications.email.from_email and triage_email are required when email is enabled")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the named worker's settings. A worker missing from
// the workers section runs with the defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}
