package http

import (
	"fmt"
	"strings"
	"time"
)

// Wire times are naive wall-clock values interpreted in the configured
// service timezone.
const (
	wireTimeLayout      = "2006-01-02T15:04:05"
	wireTimeShortLayout = "2006-01-02T15:04"
)

func parseWireTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(wireTimeLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(wireTimeShortLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time value %q", value)
	}
	return t, nil
}

func formatWireTime(t time.Time) string {
	return t.Format(wireTimeLayout)
}
