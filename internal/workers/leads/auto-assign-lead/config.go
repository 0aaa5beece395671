// internal/workers/leads/auto-assign-lead/config.go
package autoassignlead

import "time"

type Config struct {
	Timeout          time.Duration
	DecisionCacheTTL time.Duration

	EventsEnabled bool
	TopicARN      string

	EmailEnabled bool
	FromEmail    string
	TriageEmail  string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		DecisionCacheTTL: 24 * time.Hour,
	}
}
