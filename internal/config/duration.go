package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration parses a duration-string config field. An empty field is unset
// and yields zero; negative values are rejected. key names the field in
// error messages.
func Duration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: bad duration %q: %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", key, raw)
	}
	return d, nil
}

// DurationOr is Duration with a fallback for unset fields.
func DurationOr(key, raw string, def time.Duration) (time.Duration, error) {
	d, err := Duration(key, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
