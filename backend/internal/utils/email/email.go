package email

import (
	"crypto/tls"
	"fmt"
	"math/rand"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/voiceweave/voiceweave/shared/config"
	"github.com/voiceweave/voiceweave/shared/logger"
)

const defaultMessageDomain = "voiceweave.local"

// Email delivers HTML mail through an SMTP relay.
type Email struct {
	config *config.Email
	auth   smtp.Auth
	now    func() time.Time
}

func New(config *config.Email) *Email {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
	return &Email{
		config: config,
		auth:   auth,
		now:    time.Now,
	}
}

func (e *Email) Send(recipientEmail, subject, body string) error {
	msg := e.buildMessage(recipientEmail, subject, body)
	address := fmt.Sprintf("%s:%d", e.config.SMTPServer, e.config.SMTPPort)

	// 465 is implicit TLS, anything else negotiates STARTTLS
	if e.config.SMTPPort == 465 {
		return e.sendImplicitTLS(address, recipientEmail, msg)
	}
	return e.sendSTARTTLS(address, recipientEmail, msg)
}

func (e *Email) timeout() time.Duration {
	timeout := time.Duration(e.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

func (e *Email) sendImplicitTLS(address, recipientEmail string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: e.config.SMTPServer}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: e.timeout()}, "tcp", address, tlsConfig)
	if err != nil {
		logger.Log.Error("smtp dial failed", "mode", "implicit_tls", "address", address, "error", err)
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	return e.deliver(client, recipientEmail, msg)
}

func (e *Email) sendSTARTTLS(address, recipientEmail string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, e.timeout())
	if err != nil {
		logger.Log.Error("smtp dial failed", "mode", "starttls", "address", address, "error", err)
		return fmt.Errorf("dial %s: %w", address, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: e.config.SMTPServer}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}

	return e.deliver(client, recipientEmail, msg)
}

func (e *Email) deliver(client *smtp.Client, recipientEmail string, msg []byte) error {
	if err := client.Auth(e.auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(e.config.Username); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(recipientEmail); err != nil {
		return fmt.Errorf("smtp RCPT TO %s: %w", recipientEmail, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	return client.Quit()
}

// messageDomain is the host part of the sender address.
func (e *Email) messageDomain() string {
	if _, host, found := strings.Cut(e.config.Username, "@"); found && host != "" {
		return host
	}
	return defaultMessageDomain
}

func (e *Email) buildMessage(recipient, subject, body string) []byte {
	now := e.now()
	msgID := fmt.Sprintf("<%d.%d@%s>", now.UnixNano(), rand.Int63(), e.messageDomain())

	return fmt.Appendf(nil,
		"Message-ID: %s\r\n"+
			"Date: %s\r\n"+
			"To: %s\r\n"+
			"From: %s <%s>\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"utf-8\"\r\n"+
			"\r\n"+
			"%s",
		msgID,
		now.Format(time.RFC1123Z),
		recipient,
		mime.QEncoding.Encode("utf-8", e.config.SenderName),
		e.config.Username,
		mime.QEncoding.Encode("utf-8", subject),
		body,
	)
}

// LogOnly stands in for SMTP when no relay is configured. Messages are logged and dropped.
type LogOnly struct{}

func (LogOnly) Send(recipientEmail, subject, body string) error {
	logger.Log.Info("smtp not configured, dropping email",
		"recipient", recipientEmail,
		"subject", subject,
		"body_bytes", len(body))
	return nil
}
