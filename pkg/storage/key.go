package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/matchvault/backend/internal/apperr"
)

const (
	// FolderRecordings is the S3 prefix for recording objects.
	FolderRecordings = "recordings"
	// DefaultRecordingExt is the extension used when none is given.
	DefaultRecordingExt = "mp4"
	businessDateLayout  = "2006-01-02"
)

// Accepted string layouts for business dates, tried in order.
var businessDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	businessDateLayout,
}

// DeriveKey returns the canonical object key for a recording:
// recordings/{YYYY-MM-DD}/{session_id}/{export_or_production_id}.{ext}.
// The date is the UTC calendar date of businessDate. Ids that would change the
// key's shape (empty, dot segments or containing a slash) are rejected.
func DeriveKey(sessionID, exportOrProductionID string, businessDate time.Time, ext string) (string, error) {
	for _, id := range []string{sessionID, exportOrProductionID} {
		if id == "" || id == "." || id == ".." || strings.Contains(id, "/") {
			return "", apperr.New(apperr.KindUpstream, "derive storage key", fmt.Sprintf("invalid key segment %q", id))
		}
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultRecordingExt
	}
	day := businessDate.UTC().Format(businessDateLayout)
	return fmt.Sprintf("%s/%s/%s/%s.%s", FolderRecordings, day, sessionID, exportOrProductionID, ext), nil
}

// ParseBusinessDate accepts a time.Time (or *time.Time) or a parseable date string.
func ParseBusinessDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("business date: zero time")
		}
		return t, nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, fmt.Errorf("business date: zero time")
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range businessDateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("business date: unparseable %q", t)
	default:
		return time.Time{}, fmt.Errorf("business date: unsupported type %T", v)
	}
}
