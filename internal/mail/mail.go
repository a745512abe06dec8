// Package mail delivers verification codes to users.
package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("package", "mail")

// Sender ...
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

// SMTPConfig ...
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpSender struct {
	cfg SMTPConfig
}

// NewSMTP creates a Sender backed by a plain-auth smtp relay.
func NewSMTP(cfg SMTPConfig) Sender {
	return smtpSender{cfg: cfg}
}

func (s smtpSender) SendVerificationCode(_ context.Context, to, code string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your Verification Code\r\n\r\nYour verification code is: %s\r\n",
		s.cfg.From, to, code)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}

type logSender struct{}

// NewLog creates a Sender that only logs the code. Used when no smtp relay is
// configured.
func NewLog() Sender {
	return logSender{}
}

func (logSender) SendVerificationCode(_ context.Context, to, code string) error {
	log.WithFields(logrus.Fields{"to": to, "code": code}).Info("verification code issued")
	return nil
}
