package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const sendTimeout = 15 * time.Second

type Email struct {
	ToName  string
	ToEmail string
	Subject string
	HTML    string
}

// Dispatcher delivers one email through a provider API.
type Dispatcher interface {
	Send(ctx context.Context, email Email) error
}

// Alerter pushes a short plain-text alert to the tutor.
type Alerter interface {
	Alert(ctx context.Context, text string) error
}

// Notifier sends emails and admin alerts in the background. Failures are
// logged and never reach the caller.
type Notifier struct {
	dispatcher Dispatcher
	alerter    Alerter
	adminEmail string
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewNotifier(dispatcher Dispatcher, alerter Alerter, adminEmail string, logger *zap.Logger) *Notifier {
	if dispatcher == nil {
		dispatcher = LogDispatcher{Logger: logger}
	}
	return &Notifier{
		dispatcher: dispatcher,
		alerter:    alerter,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

func (n *Notifier) Email(email Email) {
	if email.ToEmail == "" {
		n.logger.Debug("Skipping email without recipient", zap.String("subject", email.Subject))
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.dispatcher.Send(ctx, email); err != nil {
			n.logger.Error("Failed to send email",
				zap.String("to", email.ToEmail),
				zap.String("subject", email.Subject),
				zap.Error(err),
			)
			return
		}
		n.logger.Info("Email sent", zap.String("to", email.ToEmail), zap.String("subject", email.Subject))
	}()
}

func (n *Notifier) EmailAdmin(subject, html string) {
	n.Email(Email{ToEmail: n.adminEmail, Subject: subject, HTML: html})
}

func (n *Notifier) AlertAdmin(text string) {
	if n.alerter == nil {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.alerter.Alert(ctx, text); err != nil {
			n.logger.Error("Failed to send admin alert", zap.Error(err))
		}
	}()
}

// Wait blocks until every in-flight send has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// LogDispatcher is used when no email provider is configured.
type LogDispatcher struct {
	Logger *zap.Logger
}

func (d LogDispatcher) Send(_ context.Context, email Email) error {
	d.Logger.Warn("Email provider not configured, dropping email",
		zap.String("to", email.ToEmail),
		zap.String("subject", email.Subject),
	)
	return nil
}
