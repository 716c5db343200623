package accounts

import (
	"context"
	"fmt"
	"strings"
)

// Notifier delivers account emails. The core only needs deliver semantics and
// a pass/fail result; transport configuration belongs to the host.
type Notifier interface {
	Deliver(ctx context.Context, to, subject, htmlBody string) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, to, subject, htmlBody string) error

// Deliver satisfies the Notifier interface.
func (f NotifierFunc) Deliver(ctx context.Context, to, subject, htmlBody string) error {
	return f(ctx, to, subject, htmlBody)
}

type logNotifier struct {
	logger Logger
}

// NewLogNotifier returns a Notifier that logs instead of sending. Useful as a
// development default and in tests.
func NewLogNotifier(logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Deliver(_ context.Context, to, subject, htmlBody string) error {
	n.logger.Info("notifier deliver", "to", to, "subject", subject, "body_bytes", len(htmlBody))
	return nil
}

func activationLink(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/auth/account/activate/" + token
}

func resetLink(clientURL, token string) string {
	return strings.TrimRight(clientURL, "/") + "/auth/password/reset/" + token
}

func activationEmail(name, link string) (subject, body string) {
	subject = "Activate your account"
	body = fmt.Sprintf(`<p>Hi %s,</p>
<p>Click the link below to activate your account:</p>
<a href="%s">Activate Account</a>
<p>This link expires in 10 minutes.</p>`, name, link)
	return subject, body
}

func resetEmail(name, link string) (subject, body string) {
	subject = "Reset your password"
	body = fmt.Sprintf(`<p>Hi %s,</p>
<p>Click the link below to choose a new password:</p>
<a href="%s">Reset Password</a>
<p>This link expires in 10 minutes and can be used once.</p>`, name, link)
	return subject, body
}
