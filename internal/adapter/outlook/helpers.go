package outlook

import (
	"time"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

var graphLayouts = []string{
	"2006-01-02T15:04:05.0000000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// parseSDKDateTime converts a Graph DateTimeTimeZone to time.Time. The
// zone is honored when it is an IANA name; Windows zone names and anything
// unknown fall back to UTC, which is what the backend requests from Graph.
func parseSDKDateTime(dt models.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	value := derefStr(dt.GetDateTime())
	if value == "" {
		return time.Time{}
	}

	loc := time.UTC
	if tz := derefStr(dt.GetTimeZone()); tz != "" && tz != "UTC" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	for _, layout := range graphLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}
