package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/ThreeDotsLabs/watermill/message"
)

var (
	confirmationTmpl = template.Must(template.New("signup_confirmation").Parse(
		`Hi {{.DisplayName}},

Your listmate account is ready. You can sign in with this email address
{{- if .Provider}} or with {{.Provider}}{{end}}.
`))

	notificationTmpl = template.Must(template.New("signup_notification").Parse(
		`New account {{.UserID}} ({{.DisplayName}}) signed up
{{- if .Provider}} via {{.Provider}}{{end}} at {{.CreatedAt.Format "2006-01-02 15:04:05 MST"}}.
`))
)

// Dispatcher turns account-created events into two mails: a sign-up
// confirmation to the new user and a sign-up notification to operators.
type Dispatcher struct {
	mailer    Mailer
	operators []string
	logger    *slog.Logger
}

func NewDispatcher(mailer Mailer, operators []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, operators: operators, logger: logger}
}

// Run handles messages until msgs is closed. Each message is acked before
// it is handled, so delivery is at most once.
func (d *Dispatcher) Run(ctx context.Context, msgs <-chan *message.Message) {
	for msg := range msgs {
		msg.Ack()
		d.Handle(ctx, msg.Payload)
	}
}

// Handle sends both mails for one encoded AccountCreated. Failures are
// logged; the joined error is returned for callers that want it.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	var ev AccountCreated
	if err := json.Unmarshal(payload, &ev); err != nil {
		d.logger.Error("decoding account created event", slog.String("error", err.Error()))
		return fmt.Errorf("notify: decoding event: %w", err)
	}

	return errors.Join(
		d.deliver(ctx, ev, "signup confirmation", d.SignupConfirmation),
		d.deliver(ctx, ev, "signup notification", d.SignUpNotification),
	)
}

func (d *Dispatcher) deliver(ctx context.Context, ev AccountCreated, kind string, build func(AccountCreated) (Mail, error)) error {
	m, err := build(ev)
	if err == nil && len(m.To) == 0 {
		return nil
	}
	if err == nil {
		err = d.mailer.Send(ctx, m)
	}
	if err != nil {
		d.logger.Error("delivering "+kind,
			slog.String("userID", ev.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("notify: %s: %w", kind, err)
	}
	d.logger.Info(kind+" sent", slog.String("userID", ev.UserID))
	return nil
}

// SignupConfirmation is addressed to the new user.
func (d *Dispatcher) SignupConfirmation(ev AccountCreated) (Mail, error) {
	body, err := render(confirmationTmpl, ev)
	if err != nil {
		return Mail{}, err
	}
	return Mail{To: []string{ev.Email}, Subject: "Welcome to listmate", Body: body}, nil
}

// SignUpNotification is addressed to the operators. It has no recipients
// when none are configured.
func (d *Dispatcher) SignUpNotification(ev AccountCreated) (Mail, error) {
	body, err := render(notificationTmpl, ev)
	if err != nil {
		return Mail{}, err
	}
	return Mail{To: d.operators, Subject: "New listmate sign-up", Body: body}, nil
}

func render(t *template.Template, ev AccountCreated) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, ev); err != nil {
		return "", fmt.Errorf("rendering %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
