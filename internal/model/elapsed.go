package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatElapsed renders a duration as HH:MM:SS, truncated to whole seconds.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// ParseElapsed parses HH:MM:SS, MM:SS or a plain number of seconds.
// Empty input is a zero duration.
func ParseElapsed(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid elapsed time %q", s)
	}
	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid elapsed time %q", s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid elapsed time %q: field out of range", s)
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, nil
}
