package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// parseEnv overlays Config with environment variables that are set and
// non-empty. Malformed numbers leave the field untouched and are reported
// together in the returned error.
//
//	PORT                listen port, becomes ":<PORT>"
//	UPLOAD_DIR          upload directory
//	MAX_FILE_SIZE       bytes
//	ALLOWED_FILE_TYPES  comma-separated MIME types, "*" for any
//	FAILURE_RATE        float in [0,1]
//	FAILURE_SEED        int
//	STORE               memory | postgres | redis
//	DATABASE_DSN        PostgreSQL DSN
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//	LOG_LEVEL           debug | info | warn | error
func parseEnv(cfg *Config) error {
	var errs []error

	if v, ok := lookupEnv("PORT"); ok {
		cfg.EndpointAddrHTTP = ":" + v
	}
	if v, ok := lookupEnv("UPLOAD_DIR"); ok {
		cfg.UploadDir = v
	}
	if v, ok := lookupEnv("MAX_FILE_SIZE"); ok {
		if n, err := parseInt("MAX_FILE_SIZE", v); err != nil {
			errs = append(errs, err)
		} else {
			cfg.MaxFileSize = n
		}
	}
	if v, ok := lookupEnv("ALLOWED_FILE_TYPES"); ok {
		cfg.AllowedFileTypes = ParseTypeList(v)
	}
	if v, ok := lookupEnv("FAILURE_RATE"); ok {
		if rate, err := strconv.ParseFloat(v, 64); err != nil {
			errs = append(errs, fmt.Errorf("FAILURE_RATE: %w", err))
		} else {
			cfg.FailureRate = rate
		}
	}
	if v, ok := lookupEnv("FAILURE_SEED"); ok {
		if n, err := parseInt("FAILURE_SEED", v); err != nil {
			errs = append(errs, err)
		} else {
			cfg.FailureSeed = n
		}
	}
	if v, ok := lookupEnv("STORE"); ok {
		cfg.Store = v
	}
	if v, ok := lookupEnv("DATABASE_DSN"); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := lookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookupEnv("REDIS_PASSWORD"); ok {
		cfg.RedisPassword = v
	}
	if v, ok := lookupEnv("REDIS_DB"); ok {
		if n, err := parseInt("REDIS_DB", v); err != nil {
			errs = append(errs, err)
		} else {
			cfg.RedisDB = int(n)
		}
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func parseInt(key, v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
