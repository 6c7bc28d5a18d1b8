package client

import (
	"strconv"
	"time"
)

// timeFields are the payload keys known to carry unix-second timestamps.
var timeFields = map[string]struct{}{
	"expiry":     {},
	"createdate": {},
	"lastlogin":  {},
	"timestamp":  {},
	"banned":     {},
}

const localTimeLayout = "2006-01-02 15:04:05"

// convertTimesIn rewrites known unix-second fields into local calendar dates,
// in place. It walks nested maps and slices so subscription lists and chat
// messages are covered too. Zero values are left alone: the service uses 0
// for "never".
func convertTimesIn(data any) {
	switch typed := data.(type) {
	case map[string]any:
		for key, value := range typed {
			if _, ok := timeFields[key]; ok {
				if formatted, ok := formatUnix(value); ok {
					typed[key] = formatted
					continue
				}
			}
			convertTimesIn(value)
		}
	case []any:
		for _, item := range typed {
			convertTimesIn(item)
		}
	}
}

func formatUnix(value any) (string, bool) {
	var seconds int64
	switch typed := value.(type) {
	case float64:
		seconds = int64(typed)
	case int64:
		seconds = typed
	case string:
		parsed, err := strconv.ParseInt(typed, 10, 64)
		if err != nil {
			return "", false
		}
		seconds = parsed
	default:
		return "", false
	}
	if seconds <= 0 {
		return "", false
	}
	return time.Unix(seconds, 0).Local().Format(localTimeLayout), true
}
