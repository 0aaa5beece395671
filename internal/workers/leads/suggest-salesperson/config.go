// internal/workers/leads/suggest-salesperson/config.go
package suggestsalesperson

import "time"

type Config struct {
	Timeout              time.Duration
	RecommendationsIndex string
	// IndexHistory turns off the Elasticsearch snapshot, e.g. for matchctl.
	IndexHistory bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:              30 * time.Second,
		RecommendationsIndex: "salesperson-recommendations",
		IndexHistory:         true,
	}
}
