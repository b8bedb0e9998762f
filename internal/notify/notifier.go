// Package notify delivers booking notifications. Delivery is best-effort:
// callers log failures and never surface them to the person booking.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

// LogNotifier records bookings on the structured log. It is the default
// when no SMTP relay is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier builds a notifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyBooking(ctx context.Context, occupant string, start, end time.Time, location string) error {
	n.logger.InfoContext(ctx, "booking notification",
		"occupant", occupant,
		"start", start,
		"end", end,
		"location", location,
	)
	return nil
}

// SMTPConfig holds relay settings for mail notifications.
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	To       string
	Username string
	Password string
}

// SMTPNotifier mails a short booking summary to the administrator.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier builds a notifier for the given relay.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyBooking(ctx context.Context, occupant string, start, end time.Time, location string) error {
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&body, "Subject: New booking: %s\r\n", occupant)
	body.WriteString("\r\n")
	fmt.Fprintf(&body, "%s booked %s - %s", occupant,
		start.Format("2006-01-02 15:04"), end.Format("15:04"))
	if location != "" {
		fmt.Fprintf(&body, " at %s", location)
	}
	body.WriteString("\r\n")

	var auth smtp.Auth
	if n.cfg.Username != "" {
		host := n.cfg.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)
	}

	if err := n.send(n.cfg.Addr, auth, n.cfg.From, []string{n.cfg.To}, []byte(body.String())); err != nil {
		return fmt.Errorf("send booking mail: %w", err)
	}
	return nil
}
