package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3002")
//	-u string   upload directory
//	-l int      max file size, bytes
//	-y string   comma-separated MIME allow-list ("*" or "" for any)
//	-f float    failure-injection probability
//	-x int      failure-injection seed
//	-s string   metadata store: memory, postgres, redis
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-t int      shutdown timeout, seconds
//	-v string   log level
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs), so the
// -c/-config flag handled by parseJson does not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-l", "-y", "-f", "-x", "-s", "-d", "-r", "-t", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload directory")
	fs.Int64Var(&config.MaxFileSize, "l", config.MaxFileSize, "max file size (bytes)")
	allowed := fs.String("y", strings.Join(config.AllowedFileTypes, ","), "allowed MIME types, comma-separated")
	fs.Float64Var(&config.FailureRate, "f", config.FailureRate, "failure injection probability")
	fs.Int64Var(&config.FailureSeed, "x", config.FailureSeed, "failure injection seed")
	fs.StringVar(&config.Store, "s", config.Store, "metadata store (memory, postgres, redis)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AllowedFileTypes = ParseTypeList(*allowed)
	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
