// Package mailer sends transactional email over SMTP. OTP mail is sent
// synchronously from the signup path because the operation must fail when
// the code cannot be delivered; everything else goes through the broker.
package mailer

import (
    "fmt"

    "gopkg.in/gomail.v2"

    "github.com/koshhq/kosh-backend/internal/config"
)

// Mailer wraps an SMTP dialer. A nil *Mailer is valid and drops all mail,
// which keeps local development working without SMTP credentials.
type Mailer struct {
    dialer *gomail.Dialer
    from   string
}

// New builds a Mailer from config. Returns nil when no SMTP user is
// configured so callers can branch on "mail disabled".
func New(cfg config.Config) *Mailer {
    if cfg.SMTPUser == "" {
        return nil
    }
    return &Mailer{
        dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
        from:   cfg.SMTPUser,
    }
}

// Send delivers a single HTML email.
func (m *Mailer) Send(to, subject, body string) error {
    if m == nil {
        return fmt.Errorf("mailer not configured")
    }
    msg := gomail.NewMessage()
    msg.SetHeader("From", m.from)
    msg.SetHeader("To", to)
    msg.SetHeader("Subject", subject)
    msg.SetBody("text/html", body)
    return m.dialer.DialAndSend(msg)
}

// OTPBody renders the verification mail for a freshly issued code.
func OTPBody(name, code string, ttlMin int) string {
    return fmt.Sprintf(
        `<p>Hi %s,</p><p>Your KOSH verification code is <b>%s</b>. It expires in %d minutes.</p>`,
        name, code, ttlMin)
}

// WelcomeBody renders the post-verification welcome mail.
func WelcomeBody(name string) string {
    return fmt.Sprintf(
        `<p>Hi %s,</p><p>Your email is verified — welcome to KOSH. You can now browse the marketplace, find mentors and start chatting.</p>`,
        name)
}
