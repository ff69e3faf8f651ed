package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"math/rand"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/itchan-dev/accounts/shared/config"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
)

// Email delivers notifications over SMTP as multipart/alternative messages:
// the markdown body as text/plain plus its rendered HTML.
type Email struct {
	config   *config.Email
	auth     smtp.Auth
	renderer *Renderer
}

func New(config *config.Email) *Email {
	auth := smtp.PlainAuth("", config.Username, config.Password, config.SMTPServer)
	return &Email{
		config:   config,
		auth:     auth,
		renderer: NewRenderer(),
	}
}

func (e *Email) Send(n domain.Notification) error {
	if n.Channel != "" && n.Channel != domain.ChannelEmail {
		return fmt.Errorf("unsupported notification channel %q", n.Channel)
	}
	if n.Recipient == "" {
		return fmt.Errorf("notification for %s has no recipient address", n.RecipientId)
	}

	msg, err := e.buildMessage(n)
	if err != nil {
		return err
	}
	address := fmt.Sprintf("%s:%d", e.config.SMTPServer, e.config.SMTPPort)

	// Port 465 = implicit TLS, otherwise STARTTLS
	if e.config.SMTPPort == 465 {
		return e.sendImplicitTLS(address, n.Recipient, msg)
	}
	return e.sendSTARTTLS(address, n.Recipient, msg)
}

func (e *Email) timeout() time.Duration {
	timeout := time.Duration(e.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return timeout
}

// sendImplicitTLS sends email over a connection that is TLS from the start (port 465).
func (e *Email) sendImplicitTLS(address, recipient string, msg []byte) error {
	tlsConfig := &tls.Config{ServerName: e.config.SMTPServer}

	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: e.timeout()}, "tcp", address, tlsConfig)
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server (implicit TLS)", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	return e.sendViaClient(client, recipient, msg)
}

// sendSTARTTLS upgrades a plain connection to TLS (port 587).
func (e *Email) sendSTARTTLS(address, recipient string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", address, e.timeout())
	if err != nil {
		logger.Log.Error("failed to connect to SMTP server", "address", address, "error", err)
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPServer)
	if err != nil {
		logger.Log.Error("failed to create SMTP client", "error", err)
		return err
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: e.config.SMTPServer}); err != nil {
		logger.Log.Error("failed to start TLS", "error", err)
		return err
	}

	return e.sendViaClient(client, recipient, msg)
}

func (e *Email) sendViaClient(client *smtp.Client, recipient string, msg []byte) error {
	if err := client.Auth(e.auth); err != nil {
		logger.Log.Error("SMTP authentication failed", "error", err)
		return err
	}
	if err := client.Mail(e.config.Username); err != nil {
		logger.Log.Error("failed to set sender", "error", err)
		return err
	}
	if err := client.Rcpt(recipient); err != nil {
		logger.Log.Error("failed to set recipient", "error", err)
		return err
	}

	w, err := client.Data()
	if err != nil {
		logger.Log.Error("failed to get data writer", "error", err)
		return err
	}
	if _, err = w.Write(msg); err != nil {
		logger.Log.Error("failed to write message", "error", err)
		return err
	}
	if err = w.Close(); err != nil {
		logger.Log.Error("failed to close data writer", "error", err)
		return err
	}

	return client.Quit()
}

func generateMessageID(domain string) string {
	t := time.Now().UnixNano()
	pid := rand.Int63()
	return fmt.Sprintf("<%d.%d@%s>", t, pid, domain)
}

// senderDomain is the host part of the SMTP login, used for Message-ID.
func (e *Email) senderDomain() string {
	if at := strings.LastIndex(e.config.Username, "@"); at >= 0 && at < len(e.config.Username)-1 {
		return e.config.Username[at+1:]
	}
	if e.config.SMTPServer != "" {
		return e.config.SMTPServer
	}
	return "localhost"
}

func (e *Email) buildMessage(n domain.Notification) ([]byte, error) {
	html, err := e.renderer.HTML(n.Body)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=\"utf-8\"", n.Body},
		{"text/html; charset=\"utf-8\"", html},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build message part: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("failed to build message part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var header bytes.Buffer
	fmt.Fprintf(&header, "Message-ID: %s\r\n", generateMessageID(e.senderDomain()))
	fmt.Fprintf(&header, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&header, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&header, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", e.config.SenderName), e.config.Username)
	fmt.Fprintf(&header, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	if n.Language != "" {
		fmt.Fprintf(&header, "Content-Language: %s\r\n", n.Language)
	}
	header.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&header, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	return append(header.Bytes(), body.Bytes()...), nil
}
