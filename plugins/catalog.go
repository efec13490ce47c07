package plugins

import (
	"fmt"
	"sort"

	"github.com/srediag/plugin-status/api"
	"github.com/srediag/plugin-status/plugins/statusexc"
)

var builtin = map[string]func() api.Plugin{
	"statusexc": func() api.Plugin { return statusexc.New() },
}

// Names lists the built-in plugins, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for n := range builtin {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup constructs the built-in plugins with the given names. An empty list
// selects all of them.
func Lookup(names ...string) ([]api.Plugin, error) {
	if len(names) == 0 {
		names = Names()
	}
	out := make([]api.Plugin, 0, len(names))
	for _, n := range names {
		ctor, ok := builtin[n]
		if !ok {
			return nil, fmt.Errorf("unknown plugin %q", n)
		}
		out = append(out, ctor())
	}
	return out, nil
}
