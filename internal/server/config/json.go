package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
	"github.com/dmitrijs2005/filedrop/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations go
// through timex.Duration so "10s" and integer nanoseconds both work.
//
// Pointer fields distinguish "absent" from a zero value, so a file that only
// sets upload_dir leaves every other setting untouched.
type JsonConfig struct {
	EndpointAddrHTTP *string         `json:"endpoint_addr_http"`
	UploadDir        *string         `json:"upload_dir"`
	MaxFileSize      *int64          `json:"max_file_size"`
	AllowedFileTypes *[]string       `json:"allowed_file_types"`
	FailureRate      *float64        `json:"failure_rate"`
	FailureSeed      *int64          `json:"failure_seed"`
	Store            *string         `json:"store"`
	DatabaseDSN      *string         `json:"database_dsn"`
	RedisAddr        *string         `json:"redis_addr"`
	RedisPassword    *string         `json:"redis_password"`
	RedisDB          *int            `json:"redis_db"`
	ShutdownTimeout  *timex.Duration `json:"shutdown_timeout"`
	LogLevel         *string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config and copies every field it
// sets into config. Without the flag nothing happens. Read and decode
// errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.UploadDir, c.UploadDir)
	setIf(&config.MaxFileSize, c.MaxFileSize)
	if c.AllowedFileTypes != nil {
		config.AllowedFileTypes = ParseTypeList(strings.Join(*c.AllowedFileTypes, ","))
	}
	setIf(&config.FailureRate, c.FailureRate)
	setIf(&config.FailureSeed, c.FailureSeed)
	setIf(&config.Store, c.Store)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setIf(&config.RedisDB, c.RedisDB)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
