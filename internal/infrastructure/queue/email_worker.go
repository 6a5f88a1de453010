package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-management/pkg/helpers"
	"github.com/oksasatya/go-user-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-management/pkg/mailer/templates"
)

// ErrBadJob marks a message that can never be delivered and must not be retried.
var ErrBadJob = errors.New("bad email job")

const defaultSendTimeout = 15 * time.Second

// EmailWorker renders queued email jobs and hands them to a Sender.
type EmailWorker struct {
	Sender      mailer.Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewEmailWorker(sender mailer.Sender, logger *logrus.Logger) *EmailWorker {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &EmailWorker{Sender: sender, Logger: logger, SendTimeout: defaultSendTimeout}
}

// Handle processes one message body. Errors wrapping ErrBadJob are permanent.
func (w *EmailWorker) Handle(ctx context.Context, body []byte) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if !job.Ready() {
		return fmt.Errorf("%w: missing recipient or content", ErrBadJob)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
		subject, text, html = s, t, h
	}

	timeout := w.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return w.Sender.Send(c, job.To, subject, text, html)
}

// Run consumes deliveries until msgs is closed or ctx is done.
// Bad jobs are dropped, send failures are requeued.
func (w *EmailWorker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.settle(msg, w.Handle(ctx, msg.Body))
		}
	}
}

func (w *EmailWorker) settle(msg amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, ErrBadJob):
		w.Logger.WithError(err).Warn("dropping email job")
		_ = msg.Nack(false, false)
	default:
		w.Logger.WithError(err).Warn("email send failed, requeueing")
		_ = msg.Nack(false, true)
	}
}
