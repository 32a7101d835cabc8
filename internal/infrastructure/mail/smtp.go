package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"

	"github.com/mcbuckeye/regulatoryradar/internal/config"
	"github.com/mcbuckeye/regulatoryradar/internal/ports"
)

// Category classifies a delivery failure for the digest record.
type Category string

const (
	CategoryAuth     Category = "auth"
	CategoryProtocol Category = "protocol"
	CategoryOther    Category = "other"
)

// DeliveryError wraps a send failure with its category.
type DeliveryError struct {
	Category Category
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail delivery (%s): %v", e.Category, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// CategoryOf extracts the failure category from a send error.
func CategoryOf(err error) Category {
	var dErr *DeliveryError
	if errors.As(err, &dErr) {
		return dErr.Category
	}
	return CategoryOther
}

// SMTPMailer performs a single delivery attempt over SMTP with
// STARTTLS when the server offers it. No automatic retry.
type SMTPMailer struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer registers the transport settings. The TLS config names
// the server so the STARTTLS handshake can verify its certificate.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host},
	}
}

// Send delivers one HTML message. A missing password is reported as an
// auth failure so callers record the outcome instead of crashing.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.cfg.Pass == "" {
		return &DeliveryError{Category: CategoryAuth, Err: errors.New("smtp password not configured")}
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &DeliveryError{Category: CategoryOther, Err: err}
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return categorize(err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(m.tlsConfig); err != nil {
			return categorize(err)
		}
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return categorize(err)
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return categorize(err)
	}
	if err := client.Rcpt(to); err != nil {
		return categorize(err)
	}

	writer, err := client.Data()
	if err != nil {
		return categorize(err)
	}
	if _, err := writer.Write(buildMessage(m.cfg.From, to, subject, htmlBody)); err != nil {
		writer.Close()
		return categorize(err)
	}
	if err := writer.Close(); err != nil {
		return categorize(err)
	}

	return client.Quit()
}

// categorize maps SMTP reply codes onto the failure taxonomy: the 53x
// authentication codes are auth, any other server reply is protocol,
// everything else (I/O, TLS) is other.
func categorize(err error) error {
	var reply *textproto.Error
	if errors.As(err, &reply) {
		switch reply.Code {
		case 530, 534, 535, 538:
			return &DeliveryError{Category: CategoryAuth, Err: err}
		default:
			return &DeliveryError{Category: CategoryProtocol, Err: err}
		}
	}
	return &DeliveryError{Category: CategoryOther, Err: err}
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	plain, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	fmt.Fprint(plain, "Your RegulatoryRadar daily digest is ready. "+
		"Please view this email in an HTML-compatible client.\r\n")

	html, _ := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	fmt.Fprint(html, htmlBody)

	mw.Close()
	return buf.Bytes()
}
