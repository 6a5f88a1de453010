package queue

import (
	"context"
	"fmt"

	"github.com/oksasatya/go-user-management/internal/application"
	"github.com/oksasatya/go-user-management/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-management/pkg/mailer/templates"
)

// Publisher puts a JSON body on a queue. helpers.RabbitPublisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailNotifier turns account notifications into templated email jobs.
type EmailNotifier struct {
	pub   Publisher
	brand mailtpl.Brand
}

func NewEmailNotifier(pub Publisher, brand mailtpl.Brand) *EmailNotifier {
	return &EmailNotifier{pub: pub, brand: brand}
}

func (n *EmailNotifier) Notify(ctx context.Context, note application.Notification) error {
	if !mailtpl.Known(note.Type) {
		return fmt.Errorf("no email template for %q", note.Type)
	}
	if note.To == "" {
		return fmt.Errorf("notification %q has no recipient", note.Type)
	}
	opts := []mailtpl.Option{mailtpl.WithTime(note.At)}
	if len(note.Changes) > 0 {
		opts = append(opts, mailtpl.WithChanges(note.Changes))
	}
	data := mailtpl.NewEmailData(n.brand, note.Type, note.Name, note.To, opts...)

	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       note.To,
		Template: note.Type,
		Data:     mailtpl.ToMap(data),
	})
}

var _ application.Notifier = (*EmailNotifier)(nil)
