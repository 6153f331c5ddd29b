package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// ValueFlags lists every flag of the uploader that takes a value, including
// -c/-config. Callers use it to find positional arguments.
var ValueFlags = []string{"-a", "-w", "-r", "-t", "-b", "-m", "-v", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so file paths and -c/-config are ignored here.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-r", "-t", "-b", "-m", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the upload server")
	fs.IntVar(&cfg.Concurrency, "w", cfg.Concurrency, "concurrent uploads")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "retries per file")
	attemptTimeout := fs.Int("t", int(cfg.AttemptTimeout.Seconds()), "per-attempt timeout (in seconds)")
	backoffBase := fs.Int("b", int(cfg.BackoffBase.Milliseconds()), "initial retry backoff (in milliseconds)")
	backoffMax := fs.Int("m", int(cfg.BackoffMax.Seconds()), "maximum retry backoff (in seconds)")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.AttemptTimeout = time.Duration(*attemptTimeout) * time.Second
	cfg.BackoffBase = time.Duration(*backoffBase) * time.Millisecond
	cfg.BackoffMax = time.Duration(*backoffMax) * time.Second
}
