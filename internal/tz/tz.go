// Package tz resolves time zone names to the POSIX TZ specs the system clock uses.
package tz

import "sort"

// Lookup returns the POSIX TZ spec for name. Names must match exactly.
func Lookup(name string) (string, bool) {
	spec, ok := zones[name]
	return spec, ok
}

// Names returns all known zone names in sorted order.
func Names() []string {
	names := make([]string, 0, len(zones))
	for name := range zones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
