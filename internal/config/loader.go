package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the slot
// booking service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	Timezone          string
	TermEnd           time.Time
	AdminEmail        string
	AdminPasswordHash string
	SessionTTL        time.Duration
	PurgeCron         string

	// SMTP settings are optional; when SMTPAddr is empty, booking
	// notifications go to the log instead of a mail relay.
	SMTPAddr     string
	SMTPFrom     string
	SMTPTo       string
	SMTPUsername string
	SMTPPassword string
}

const termEndLayout = "2006-01-02"

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every missing or malformed entry at once.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "file:slots.db?_foreign_keys=on",
		Timezone:   "UTC",
		SessionTTL: 24 * time.Hour,
		PurgeCron:  "@hourly",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("SLOTD_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SLOTD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SLOTD_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tz := strings.TrimSpace(os.Getenv("SLOTD_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "SLOTD_TIMEZONE")
		} else {
			cfg.Timezone = tz
		}
	}

	if termValue := strings.TrimSpace(os.Getenv("SLOTD_TERM_END")); termValue == "" {
		missing = append(missing, "SLOTD_TERM_END")
	} else {
		termEnd, err := time.Parse(termEndLayout, termValue)
		if err != nil {
			invalid = append(invalid, "SLOTD_TERM_END")
		} else {
			cfg.TermEnd = termEnd
		}
	}

	if email := strings.TrimSpace(os.Getenv("SLOTD_ADMIN_EMAIL")); email == "" {
		missing = append(missing, "SLOTD_ADMIN_EMAIL")
	} else {
		cfg.AdminEmail = email
	}

	if hash := strings.TrimSpace(os.Getenv("SLOTD_ADMIN_PASSWORD_HASH")); hash == "" {
		missing = append(missing, "SLOTD_ADMIN_PASSWORD_HASH")
	} else {
		cfg.AdminPasswordHash = hash
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SLOTD_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SLOTD_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if cron := strings.TrimSpace(os.Getenv("SLOTD_SESSION_PURGE_CRON")); cron != "" {
		cfg.PurgeCron = cron
	}

	cfg.SMTPAddr = strings.TrimSpace(os.Getenv("SLOTD_SMTP_ADDR"))
	cfg.SMTPFrom = strings.TrimSpace(os.Getenv("SLOTD_SMTP_FROM"))
	cfg.SMTPTo = strings.TrimSpace(os.Getenv("SLOTD_SMTP_TO"))
	cfg.SMTPUsername = strings.TrimSpace(os.Getenv("SLOTD_SMTP_USERNAME"))
	cfg.SMTPPassword = os.Getenv("SLOTD_SMTP_PASSWORD")
	if cfg.SMTPAddr != "" && (cfg.SMTPFrom == "" || cfg.SMTPTo == "") {
		invalid = append(invalid, "SLOTD_SMTP_ADDR")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured civil timezone. Load validated the name,
// so resolution only fails if tzdata disappeared after startup.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
