// Package flagx lets several flag sets share one command line: each set
// parses only the arguments that belong to it.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// ConfigFlags are the names that select a JSON configuration file.
var ConfigFlags = []string{"-c", "-config"}

// FilterArgs keeps the arguments naming one of allowed, together with their
// values. Both "-f value" and "-f=value" forms are recognized. Names listed
// in boolFlags never take a separate value, so the argument after them is
// left alone.
func FilterArgs(args, allowed, boolFlags []string) []string {
	isAllowed := toSet(allowed)
	isBool := toSet(boolFlags)

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") {
			continue
		}
		if _, ok := isAllowed[name]; !ok {
			continue
		}
		out = append(out, args[i])
		if hasValue {
			continue
		}
		if _, ok := isBool[name]; ok {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// DropArgs is the complement of FilterArgs for value-taking flags: it
// removes the named flags and their values.
func DropArgs(args, names []string) []string {
	drop := toSet(names)

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if _, ok := drop[name]; !ok {
			out = append(out, args[i])
			continue
		}
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
		}
	}
	return out
}

// ConfigPath returns the value of -c or -config in args, or "".
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags, nil))

	return path
}

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}
