// Package flagx contains helpers that let several packages parse their own
// subset of os.Args without stepping on each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// splitFlag reports the flag name of arg and whether the value is inlined
// ("-f=value"). Non-flag arguments return an empty name.
func splitFlag(arg string) (name string, inline bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", false
	}
	if i := strings.Index(arg, "="); i >= 0 {
		return arg[:i], true
	}
	return arg, false
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// FilterArgs returns the subset of args made of allowedFlags and their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// A separate value is only taken when it does not itself start with '-'.
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := toSet(allowedFlags)
	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		name, inline := splitFlag(args[i])
		if _, ok := allowed[name]; !ok || name == "" {
			continue
		}
		filtered = append(filtered, args[i])
		if inline {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// PositionalArgs returns the arguments that are neither flags nor values of
// the flags listed in valueFlags. Everything after "--" is positional.
func PositionalArgs(args []string, valueFlags []string) []string {
	takesValue := toSet(valueFlags)
	result := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			return append(result, args[i+1:]...)
		}
		name, inline := splitFlag(args[i])
		if name == "" {
			result = append(result, args[i])
			continue
		}
		if _, ok := takesValue[name]; ok && !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}

	return result
}

// ConfigFile extracts the JSON config path given with -c or -config.
// The last occurrence wins; an empty string means no file was requested.
func ConfigFile() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}
