package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateTTLs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		access  time.Duration
		refresh time.Duration
		wantErr bool
	}{
		{"typical", 10 * time.Minute, 72 * time.Hour, false},
		{"access lower bound", 1 * time.Minute, 24 * time.Hour, false},
		{"access upper bound", 30 * time.Minute, 24 * time.Hour, false},
		{"refresh lower bound", 10 * time.Minute, 12 * time.Hour, false},
		{"refresh upper bound", 10 * time.Minute, 7 * 24 * time.Hour, false},
		{"access too short", 30 * time.Second, 24 * time.Hour, true},
		{"access too long", 31 * time.Minute, 24 * time.Hour, true},
		{"access zero", 0, 24 * time.Hour, true},
		{"refresh too short", 10 * time.Minute, 11 * time.Hour, true},
		{"refresh too long", 10 * time.Minute, 8 * 24 * time.Hour, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTTLs(tc.access, tc.refresh)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
