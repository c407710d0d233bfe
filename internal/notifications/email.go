// Package notifications delivers account emails and SMS codes.
package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"

	"github.com/eduguide/backend/internal/config"
	"go.uber.org/zap"
)

type Template string

const (
	TemplateEmailVerification Template = "email-verification"
	TemplatePasswordReset     Template = "password-reset"
	TemplateWelcome           Template = "welcome"
)

var subjects = map[Template]string{
	TemplateEmailVerification: "Подтверждение регистрации - EduGuide",
	TemplatePasswordReset:     "Сброс пароля - EduGuide",
	TemplateWelcome:           "Добро пожаловать в EduGuide!",
}

//go:embed templates/*.html
var templatesFS embed.FS

// EmailData is the set of values the templates reference.
type EmailData struct {
	Name      string
	Link      string
	ExpiresIn string
}

type Email struct {
	To       string
	Template Template
	Data     EmailData
}

// Mailer sends a templated email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

type button struct {
	Href  string
	Label string
}

// Renderer turns an Email into its subject and HTML body.
type Renderer struct {
	tpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("mail").Funcs(template.FuncMap{
		"button": func(href, label string) button { return button{Href: href, Label: label} },
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

func (r *Renderer) Render(email Email) (subject, body string, err error) {
	subject, ok := subjects[email.Template]
	if !ok {
		return "", "", fmt.Errorf("email template %q not found", email.Template)
	}

	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, string(email.Template), email.Data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", email.Template, err)
	}
	return subject, buf.String(), nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type dialFunc func(addr string, cfg *tls.Config) (net.Conn, error)

// SMTPMailer sends mail through the configured relay. Port 465 uses implicit TLS.
type SMTPMailer struct {
	cfg      config.SMTPConfig
	renderer *Renderer
	send     sendFunc
	dial     dialFunc
}

func NewSMTPMailer(cfg config.SMTPConfig, renderer *Renderer) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg, renderer: renderer}
	m.send = smtp.SendMail
	m.dial = func(addr string, tc *tls.Config) (net.Conn, error) {
		return tls.Dial("tcp", addr, tc)
	}
	if cfg.Port == 465 {
		m.send = m.sendTLS
	}
	return m
}

func (m *SMTPMailer) Send(_ context.Context, email Email) error {
	subject, body, err := m.renderer.Render(email)
	if err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	msg := buildMessage(from, email.To, subject, body)

	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	envelopeFrom := m.cfg.Username
	if envelopeFrom == "" {
		envelopeFrom = from
	}
	if err := m.send(addr, auth, envelopeFrom, []string{email.To}, msg); err != nil {
		return fmt.Errorf("send %s email: %w", email.Template, err)
	}
	return nil
}

// buildMessage assembles the RFC 5322 message. The subject is Q-encoded
// since the templates use Cyrillic subjects.
func buildMessage(from, to, subject, body string) []byte {
	return []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n")
}

func (m *SMTPMailer) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := m.dial(addr, &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Quit()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		return err
	}
	return wc.Close()
}

// LogMailer renders the email and logs it instead of sending. Used when SMTP
// is not configured.
type LogMailer struct {
	renderer *Renderer
	logger   *zap.Logger
}

func NewLogMailer(renderer *Renderer, logger *zap.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	subject, _, err := m.renderer.Render(email)
	if err != nil {
		return err
	}
	m.logger.Info("email not sent, smtp disabled",
		zap.String("to", email.To),
		zap.String("template", string(email.Template)),
		zap.String("subject", subject))
	return nil
}
