package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"zero workers", func(s *Settings) { s.Workers = 0 }, "Workers must be >= 1"},
		{"bad level", func(s *Settings) { s.LogLevel = "loud" }, "LogLevel must be one of"},
		{"bad format", func(s *Settings) { s.LogFormat = "xml" }, "LogFormat must be one of"},
		{"bad port", func(s *Settings) { s.HealthcheckPort = 70000 }, "HealthcheckPort must be <="},
		{"bad cache", func(s *Settings) { s.Cache = "disk" }, "Cache must be one of"},
		{"redis without addr", func(s *Settings) { s.Cache = "redis" }, "RedisAddr is required"},
		{"bad redis addr", func(s *Settings) { s.Cache, s.RedisAddr = "redis", "nohost" }, "RedisAddr is not a valid hostname_port"},
		{"bad notify url", func(s *Settings) { s.NotifyURL = "::" }, "NotifyURL is not a valid url"},
		{"empty target", func(s *Settings) { s.Targets = []string{""} }, "is required"},
		{"redis ok", func(s *Settings) { s.Cache, s.RedisAddr = "redis", "localhost:6379" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	s := Defaults()
	s.Workers = 0
	s.LogFormat = "xml"
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Workers")
	assert.Contains(t, err.Error(), "LogFormat")
}

func TestOverlay(t *testing.T) {
	workers, cache, skip := 8, "redis", true
	file := &FileSettings{Workers: &workers, Cache: &cache, SkipOnFailure: &skip, Targets: []string{"report"}}

	s := Defaults()
	s.Cache = "memory"
	s.Overlay(file, map[string]bool{"cache": true})

	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, "memory", s.Cache, "explicit flags win")
	assert.True(t, s.SkipOnFailure)
	assert.Equal(t, []string{"report"}, s.Targets)
	assert.Empty(t, s.RunsDB, "unset file fields leave settings alone")

	before := s
	s.Overlay(nil, nil)
	assert.Equal(t, before, s)
}
