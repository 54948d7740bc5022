// Package flagx carries helpers for picking individual flags out of the
// command line before the main flag set is parsed, so that layered config
// sources (a JSON file, a .env file) can be located first.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns only the arguments in args that belong to allowedFlags,
// together with their values. Both "-c conf.json" and "-c=conf.json" forms
// are recognised; a following argument that starts with "-" is never taken
// as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// lookupString parses a single string flag known under several names out of
// args. The last occurrence wins.
func lookupString(args []string, names ...string) string {
	var value string

	allowed := make([]string, 0, len(names))
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		allowed = append(allowed, "-"+n)
		fs.StringVar(&value, n, "", "")
	}

	_ = fs.Parse(FilterArgs(args, allowed))
	return value
}

// JSONConfigPath returns the value of -c / -config in args, or "".
func JSONConfigPath(args []string) string {
	return lookupString(args, "config", "c")
}

// EnvFilePath returns the value of -env-file in args, or "".
func EnvFilePath(args []string) string {
	return lookupString(args, "env-file")
}
