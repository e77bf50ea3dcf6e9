package services

import (
	"testing"

	"github.com/teampulse-io/teampulse/backend/internal/config"
)

func TestTokenTTLHours(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.JWTConfig
		want int
	}{
		{"configured lifetime", &config.JWTConfig{ExpireHour: 72}, 72},
		{"zero falls back to a day", &config.JWTConfig{}, 24},
		{"negative falls back to a day", &config.JWTConfig{ExpireHour: -1}, 24},
		{"nil config", nil, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenTTLHours(tt.cfg); got != tt.want {
				t.Errorf("tokenTTLHours() = %d, expected %d", got, tt.want)
			}
		})
	}
}
