// Package params parses programmer parameter strings of the form
// "key=val,key=val" and extracts the settings the MST programmer needs.
// All validation happens here, before any hardware is touched.
package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse splits a comma-separated key=val parameter string.
func Parse(s string) (map[string]string, error) {
	out := make(map[string]string)
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("params: malformed parameter %q, want key=val", part)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("params: duplicate parameter %q", k)
		}
		out[k] = v
	}
	return out, nil
}

// Bus extracts and validates the required I2C bus number (0-255).
func Bus(p map[string]string) (int, error) {
	v, ok := p["bus"]
	if !ok {
		return 0, errors.New("params: bus number not specified")
	}
	bus, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("params: could not convert bus %q: %w", v, err)
	}
	if bus < 0 || bus > 255 {
		return 0, fmt.Errorf("params: bus %d out of range (0-255)", bus)
	}
	return bus, nil
}
