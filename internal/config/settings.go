package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Settings is the validated engine configuration.
type Settings struct {
	Workers         int    `validate:"min=1,max=1024"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	LogFormat       string `validate:"oneof=text json"`
	HealthcheckPort int    `validate:"min=0,max=65535"`
	Cache           string `validate:"oneof=memory redis"`
	RedisAddr       string `validate:"required_if=Cache redis,omitempty,hostname_port"`
	RedisPrefix     string `validate:"required"`
	// RunsDB is the sqlite path for run reports; empty disables them.
	RunsDB string
	// NotifyURL is the socket.io endpoint for run events; empty disables them.
	NotifyURL      string `validate:"omitempty,url"`
	SkipOnFailure  bool
	FailOnWarnings bool
	// Targets restricts runs to these node addresses and their ancestors.
	Targets []string `validate:"dive,required"`
}

// FileSettings is a settings block from a pipeline file. Nil fields were
// not set.
type FileSettings struct {
	Workers        *int
	Cache          *string
	RedisAddr      *string
	RedisPrefix    *string
	RunsDB         *string
	NotifyURL      *string
	SkipOnFailure  *bool
	FailOnWarnings *bool
	Targets        []string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Workers:     4,
		LogLevel:    "info",
		LogFormat:   "json",
		Cache:       "memory",
		RedisPrefix: "slotflow:cache",
	}
}

// Overlay applies file settings to s, except for the fields named in
// explicit, which were set on the command line and take precedence. Field
// names are the CLI flag names.
func (s *Settings) Overlay(f *FileSettings, explicit map[string]bool) {
	if f == nil {
		return
	}
	setInt(&s.Workers, f.Workers, !explicit["workers"])
	setString(&s.Cache, f.Cache, !explicit["cache"])
	setString(&s.RedisAddr, f.RedisAddr, !explicit["redis-addr"])
	setString(&s.RedisPrefix, f.RedisPrefix, !explicit["redis-prefix"])
	setString(&s.RunsDB, f.RunsDB, !explicit["runs-db"])
	setString(&s.NotifyURL, f.NotifyURL, !explicit["notify-url"])
	setBool(&s.SkipOnFailure, f.SkipOnFailure, !explicit["skip-on-failure"])
	setBool(&s.FailOnWarnings, f.FailOnWarnings, !explicit["fail-on-warnings"])
	if f.Targets != nil && !explicit["targets"] {
		s.Targets = append([]string(nil), f.Targets...)
	}
}

func setInt(dst *int, v *int, ok bool) {
	if v != nil && ok {
		*dst = *v
	}
}

func setString(dst *string, v *string, ok bool) {
	if v != nil && ok {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool, ok bool) {
	if v != nil && ok {
		*dst = *v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field and reports all violations at once.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid settings: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param(), fe.Value())
	case "required", "required_if":
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s is not a valid %s: %v", fe.Field(), fe.Tag(), fe.Value())
}
