package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
	"github.com/dmitrijs2005/filedrop/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell absent keys from zero values.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	Concurrency    *int            `json:"concurrency"`
	MaxRetries     *int            `json:"max_retries"`
	AttemptTimeout *timex.Duration `json:"attempt_timeout"`
	BackoffBase    *timex.Duration `json:"backoff_base"`
	BackoffMax     *timex.Duration `json:"backoff_max"`
	LogLevel       *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Read and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.Concurrency != nil {
		cfg.Concurrency = *jc.Concurrency
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	if jc.AttemptTimeout != nil {
		cfg.AttemptTimeout = jc.AttemptTimeout.Duration
	}
	if jc.BackoffBase != nil {
		cfg.BackoffBase = jc.BackoffBase.Duration
	}
	if jc.BackoffMax != nil {
		cfg.BackoffMax = jc.BackoffMax.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
