package notify

import (
	"context"
	"errors"
)

// Notifier delivers run reports to a chat service.
type Notifier interface {
	// Notify posts a text message.
	Notify(ctx context.Context, message string) error
	// Upload posts a message with files attached.
	Upload(ctx context.Context, message string, files ...string) error
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Upload(ctx context.Context, message string, files ...string) error {
	var errs []error
	for _, n := range m {
		if err := n.Upload(ctx, message, files...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
