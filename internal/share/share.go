// Package share delivers exported backup documents off the device.
package share

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/jordan-wright/email"
)

// Sharer receives a named document.
type Sharer interface {
	Share(ctx context.Context, name string, content []byte) (string, error)
}

// DirSharer writes documents into a directory and returns the file path.
type DirSharer struct {
	Dir string
}

func (s DirSharer) Share(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("share: create dir: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return "", fmt.Errorf("share: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("share: rename %s: %w", path, err)
	}
	return path, nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string
}

// EmailSharer sends the document as an attachment.
type EmailSharer struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailSharer(cfg SMTPConfig) *EmailSharer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailSharer{
		cfg:  cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
	}
}

func (s *EmailSharer) Share(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.cfg.To) == 0 {
		return "", fmt.Errorf("share: no recipient configured")
	}
	if strings.TrimSpace(s.cfg.From) == "" {
		return "", fmt.Errorf("share: no sender configured")
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = s.cfg.To
	e.Subject = "POS backup " + strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	e.Text = []byte("Attached is the point-of-sale backup " + filepath.Base(name) + ".\n")
	if _, err := e.Attach(bytes.NewReader(content), filepath.Base(name), "application/json"); err != nil {
		return "", fmt.Errorf("share: attach backup: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		return "", fmt.Errorf("share: send mail: %w", err)
	}
	return "mailto:" + strings.Join(s.cfg.To, ","), nil
}
