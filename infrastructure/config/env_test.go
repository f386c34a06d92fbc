package config_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/rundigest/infrastructure/config"
)

func TestExpandEnv(t *testing.T) {
	t.Run("substitutes set variables", func(t *testing.T) {
		t.Setenv("TEST_EXPAND_A", "alpha")

		if got := config.ExpandEnv("value: ${TEST_EXPAND_A}"); got != "value: alpha" {
			t.Errorf("ExpandEnv() = %q", got)
		}
	})

	t.Run("unset variables expand to empty", func(t *testing.T) {
		if got := config.ExpandEnv("value: ${TEST_EXPAND_UNSET}"); got != "value: " {
			t.Errorf("ExpandEnv() = %q", got)
		}
	})

	t.Run("default applies when unset or empty", func(t *testing.T) {
		t.Setenv("TEST_EXPAND_EMPTY", "")

		if got := config.ExpandEnv("${TEST_EXPAND_UNSET:-fallback}"); got != "fallback" {
			t.Errorf("ExpandEnv() = %q, want fallback", got)
		}
		if got := config.ExpandEnv("${TEST_EXPAND_EMPTY:-fallback}"); got != "fallback" {
			t.Errorf("ExpandEnv() = %q, want fallback for empty value", got)
		}
	})

	t.Run("default ignored when set", func(t *testing.T) {
		t.Setenv("TEST_EXPAND_B", "beta")

		if got := config.ExpandEnv("${TEST_EXPAND_B:-fallback}"); got != "beta" {
			t.Errorf("ExpandEnv() = %q, want beta", got)
		}
	})

	t.Run("required marker fails on unset", func(t *testing.T) {
		_, err := config.ExpandEnvStrict("${TEST_EXPAND_UNSET:?api key is required}")
		if !errors.Is(err, config.ErrMissingEnvVar) {
			t.Fatalf("ExpandEnvStrict() error = %v, want ErrMissingEnvVar", err)
		}
		if !strings.Contains(err.Error(), "api key is required") {
			t.Errorf("error %q does not carry the message", err)
		}
	})

	t.Run("strict mode fails on plain unset reference", func(t *testing.T) {
		if _, err := config.ExpandEnvStrict("${TEST_EXPAND_UNSET}"); !errors.Is(err, config.ErrMissingEnvVar) {
			t.Errorf("ExpandEnvStrict() error = %v, want ErrMissingEnvVar", err)
		}
	})

	t.Run("leaves non-bracket text alone", func(t *testing.T) {
		in := "plain $NOTEXPANDED and ${} stay put"
		if got := config.ExpandEnv(in); got != in {
			t.Errorf("ExpandEnv() = %q, want unchanged input", got)
		}
	})
}
