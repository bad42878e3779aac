package notify

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Subject of the run summary mail.
const Subject = "comicscrape results"

var ErrNoRelay = errors.New("no smtp relay configured")

type Options struct {
	Addr     string // host:port of the relay
	From     string
	User     string // PLAIN auth is used when set
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	opt  Options
	send sendFunc
	now  func() time.Time
}

func NewMailer(opt Options) *Mailer {
	if opt.From == "" {
		opt.From = "comicscrape@localhost"
	}
	return &Mailer{opt: opt, send: smtp.SendMail, now: time.Now}
}

// Send mails body as plain text to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m.opt.Addr == "" {
		return ErrNoRelay
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("mail: empty recipient")
	}

	var auth smtp.Auth
	if m.opt.User != "" {
		host, _, err := net.SplitHostPort(m.opt.Addr)
		if err != nil {
			return fmt.Errorf("mail: relay address %q: %w", m.opt.Addr, err)
		}
		auth = smtp.PlainAuth("", m.opt.User, m.opt.Password, host)
	}

	msg := m.message(to, subject, body)
	if err := m.send(m.opt.Addr, auth, m.opt.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mail to %s: %w", to, err)
	}
	return nil
}

func (m *Mailer) message(to, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.opt.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return b.Bytes()
}
