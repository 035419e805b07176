package presence

import (
	"fmt"
	"time"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
)

const (
	msPerMinute = int64(time.Minute / time.Millisecond)
	msPerHour   = int64(time.Hour / time.Millisecond)
	msPerDay    = 24 * msPerHour
)

// FormatLastSeen renders how long ago lastSeen was relative to now: whole
// minutes below an hour, whole hours below a day, whole days beyond. A nil
// lastSeen is "unknown"; a lastSeen in the future counts as zero.
func FormatLastSeen(now time.Time, lastSeen *time.Time) string {
	if lastSeen == nil {
		return "unknown"
	}
	elapsed := now.Sub(*lastSeen).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < msPerHour:
		return ago(elapsed/msPerMinute, "minute")
	case elapsed < msPerDay:
		return ago(elapsed/msPerHour, "hour")
	default:
		return ago(elapsed/msPerDay, "day")
	}
}

func ago(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// Describe is the peer header line for rec.
func Describe(rec *domain.PresenceRecord, now time.Time) string {
	if rec != nil && rec.Status == domain.PresenceOnline {
		return "online"
	}
	var lastSeen *time.Time
	if rec != nil {
		lastSeen = rec.LastSeen
	}
	return "last seen " + FormatLastSeen(now, lastSeen)
}
