// Package flagx lets several flag sets share os.Args: each layer picks out
// only the flags it owns before parsing.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// flagName returns the bare name of a flag argument ("-a", "--a" and
// "-a=x" all name "a") and whether arg is a flag at all.
func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	name := strings.TrimPrefix(arg[1:], "-")
	name, _, _ = strings.Cut(name, "=")
	return name, name != ""
}

// FilterArgs keeps the allowed flags of args and their values, in order.
// Flags may be given with one or two dashes; allowed lists them in either
// form. A value is either joined with '=' or the next argument, provided it
// does not start with '-'. Everything after a "--" terminator is dropped.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		if name, ok := flagName(f); ok {
			names[name] = struct{}{}
		}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, ok := flagName(arg)
		if !ok {
			continue
		}
		if _, keep := names[name]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if strings.Contains(arg, "=") {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			filtered = append(filtered, args[i])
		}
	}
	return filtered
}

// JsonConfigFlags returns the config file named by -c or -config in
// os.Args, or "" when neither is present.
func JsonConfigFlags() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	fs.SetOutput(io.Discard)
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	return path
}
