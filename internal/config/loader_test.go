package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SLOTD_TERM_END", "2026-06-30")
	t.Setenv("SLOTD_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("SLOTD_ADMIN_PASSWORD_HASH", "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Fatalf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file:slots.db?_foreign_keys=on" {
		t.Fatalf("SQLiteDSN = %s", cfg.SQLiteDSN)
	}
	if cfg.Timezone != "UTC" {
		t.Fatalf("Timezone = %s", cfg.Timezone)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %s", cfg.SessionTTL)
	}
	if cfg.PurgeCron != "@hourly" {
		t.Fatalf("PurgeCron = %s", cfg.PurgeCron)
	}
	if !cfg.TermEnd.Equal(time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("TermEnd = %v", cfg.TermEnd)
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SLOTD_HTTP_PORT", "9090")
	t.Setenv("SLOTD_SQLITE_DSN", "file::memory:?cache=shared")
	t.Setenv("SLOTD_TIMEZONE", "America/New_York")
	t.Setenv("SLOTD_SESSION_TTL", "30m")
	t.Setenv("SLOTD_SESSION_PURGE_CRON", "*/10 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Fatalf("HTTPPort = %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN != "file::memory:?cache=shared" {
		t.Fatalf("SQLiteDSN = %s", cfg.SQLiteDSN)
	}
	if cfg.Timezone != "America/New_York" {
		t.Fatalf("Timezone = %s", cfg.Timezone)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("SessionTTL = %s", cfg.SessionTTL)
	}
	if cfg.PurgeCron != "*/10 * * * *" {
		t.Fatalf("PurgeCron = %s", cfg.PurgeCron)
	}
}

func TestLoadReportsMissingRequired(t *testing.T) {
	t.Setenv("SLOTD_TERM_END", "")
	t.Setenv("SLOTD_ADMIN_EMAIL", "")
	t.Setenv("SLOTD_ADMIN_PASSWORD_HASH", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"SLOTD_TERM_END", "SLOTD_ADMIN_EMAIL", "SLOTD_ADMIN_PASSWORD_HASH"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s: %v", name, err)
		}
	}
}

func TestLoadReportsInvalidValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SLOTD_HTTP_PORT", "not-a-port")
	t.Setenv("SLOTD_TERM_END", "30/06/2026")
	t.Setenv("SLOTD_SESSION_TTL", "-1h")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, name := range []string{"SLOTD_HTTP_PORT", "SLOTD_TERM_END", "SLOTD_SESSION_TTL"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s: %v", name, err)
		}
	}
}

func TestLoadValidatesSMTPPairing(t *testing.T) {
	setRequired(t)
	t.Setenv("SLOTD_SMTP_ADDR", "mail.example.com:587")

	if _, err := Load(); err == nil {
		t.Fatal("SMTP address without from/to should be rejected")
	}

	t.Setenv("SLOTD_SMTP_FROM", "noreply@example.com")
	t.Setenv("SLOTD_SMTP_TO", "admin@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SMTPAddr != "mail.example.com:587" {
		t.Fatalf("SMTPAddr = %s", cfg.SMTPAddr)
	}
}
