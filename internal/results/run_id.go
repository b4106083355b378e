package results

import (
	"encoding/hex"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const runIDSuffixBytes = 4

var runIDPattern = regexp.MustCompile(`^\d{8}T\d{6}Z-[0-9a-f]{8}$`)

// NewRunID returns a time-ordered run id with a uuid-derived suffix.
func NewRunID(now time.Time) string {
	return NewRunIDWithUUID(now, uuid.New())
}

// NewRunIDWithUUID builds a run id from a fixed uuid.
func NewRunIDWithUUID(now time.Time, id uuid.UUID) string {
	return FormatRunID(now, hex.EncodeToString(id[:runIDSuffixBytes]))
}

// FormatRunID renders YYYYMMDDTHHMMSSZ-<suffix> in UTC.
func FormatRunID(now time.Time, suffix string) string {
	return now.UTC().Format("20060102T150405Z") + "-" + suffix
}

// ValidRunID reports whether id has the run id shape, which also keeps it safe
// to use as a path element.
func ValidRunID(id string) bool {
	return runIDPattern.MatchString(id)
}
