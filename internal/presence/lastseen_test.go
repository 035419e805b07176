package presence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/IgoorDrt/ErroOps-v1/internal/domain"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
)

func TestFormatLastSeen(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	cases := []struct {
		name string
		last *time.Time
		want string
	}{
		{"Nil", nil, "unknown"},
		{"JustNow", at(0), "0 minutes ago"},
		{"UnderAMinute", at(59 * time.Second), "0 minutes ago"},
		{"OneMinute", at(time.Minute), "1 minute ago"},
		{"Minutes", at(5*time.Minute + 30*time.Second), "5 minutes ago"},
		{"JustUnderAnHour", at(59*time.Minute + 59*time.Second), "59 minutes ago"},
		{"OneHour", at(time.Hour), "1 hour ago"},
		{"Hours", at(23*time.Hour + 59*time.Minute), "23 hours ago"},
		{"OneDay", at(24 * time.Hour), "1 day ago"},
		{"Days", at(3*24*time.Hour + 5*time.Hour), "3 days ago"},
		{"Future", at(-10 * time.Minute), "0 minutes ago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, presence.FormatLastSeen(now, tc.last))
		})
	}
}

func TestDescribe(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-2 * time.Hour)

	assert.Equal(t, "online", presence.Describe(&domain.PresenceRecord{Status: domain.PresenceOnline, LastSeen: &earlier}, now))
	assert.Equal(t, "last seen 2 hours ago", presence.Describe(&domain.PresenceRecord{Status: domain.PresenceOffline, LastSeen: &earlier}, now))
	assert.Equal(t, "last seen unknown", presence.Describe(nil, now))
}
