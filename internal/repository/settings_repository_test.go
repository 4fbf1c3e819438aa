package repository

import (
	"testing"

	"github.com/subculture-collective/clipqueue/internal/models"
)

func TestValidateSettings(t *testing.T) {
	good := defaultSettings()
	if err := validateSettings(good); err != nil {
		t.Fatalf("expected default settings to validate, got %v", err)
	}

	emptyPrefix := defaultSettings()
	emptyPrefix.CommandPrefix = ""
	if err := validateSettings(emptyPrefix); err == nil {
		t.Error("expected error for empty command prefix")
	}

	tooLongPrefix := defaultSettings()
	tooLongPrefix.CommandPrefix = "123456789"
	if err := validateSettings(tooLongPrefix); err == nil {
		t.Error("expected error for command prefix over 8 chars")
	}

	spacedPrefix := defaultSettings()
	spacedPrefix.CommandPrefix = "a b"
	if err := validateSettings(spacedPrefix); err == nil {
		t.Error("expected error for command prefix containing a space")
	}

	negativeLimit := defaultSettings()
	limit := -1
	negativeLimit.Queue.Limit = &limit
	if err := validateSettings(negativeLimit); err == nil {
		t.Error("expected error for non-positive queue limit")
	}

	nilLimit := defaultSettings()
	nilLimit.Queue.Limit = nil
	if err := validateSettings(nilLimit); err != nil {
		t.Errorf("nil limit should be valid (unbounded), got %v", err)
	}
}

func TestDefaultSettingsShape(t *testing.T) {
	s := defaultSettings()
	if s.Version != 1 {
		t.Errorf("expected version 1, got %d", s.Version)
	}
	if len(s.AllowedCommands) == 0 {
		t.Error("expected non-empty default allowed commands")
	}
	if s.Queue.AutoModerationEnabled {
		t.Error("expected auto-moderation off by default")
	}
	if len(s.Queue.EnabledPlatforms) == 0 {
		t.Error("expected non-empty default enabled platforms")
	}
	_ = models.ClipStatusApproved // sanity that models package resolves in this test file
}
