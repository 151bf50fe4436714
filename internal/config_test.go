package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Ledger.Cooldown() != 5*time.Second {
		t.Errorf("cooldown = %s, want 5s", cfg.Ledger.Cooldown())
	}
	if cfg.Ledger.MinimumGap() != 2*time.Hour {
		t.Errorf("minimum gap = %s, want 2h", cfg.Ledger.MinimumGap())
	}
}

func TestLedgerConfigRequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Ledger.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty ledger path should fail validation")
	}
}

func TestLedgerConfigRejectsNegativeKnobs(t *testing.T) {
	cfg := LedgerConfig{Path: "x.csv", CooldownSeconds: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative cooldown should fail")
	}
	cfg = LedgerConfig{Path: "x.csv", MinimumGapHours: -2}
	if err := cfg.Validate(); err == nil {
		t.Error("negative gap should fail")
	}
}

func TestKafkaConfigDisabledNeedsNothing(t *testing.T) {
	cfg := KafkaConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled kafka should pass: %v", err)
	}
}

func TestKafkaConfigEnabledRequiresBrokersAndTopic(t *testing.T) {
	cfg := KafkaConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Error("enabled kafka without brokers/topic should fail")
	}
	cfg = KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "identity-events"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete kafka config should pass: %v", err)
	}
}

func TestAuthConfigDisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfigEmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfigTokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfigInvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}
