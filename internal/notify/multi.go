package notify

import (
	"context"
	"errors"

	"macd-vol-bot/models"
)

// MultiNotifier fans out to every configured channel. A failing channel
// never blocks the others; the combined error is reported to the caller
// for logging only.
type MultiNotifier struct {
	notifiers []models.Notifier
}

// NewMultiNotifier builds a fan-out over the given channels
func NewMultiNotifier(notifiers ...models.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) SendSignal(ctx context.Context, sig models.Signal, advisory string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.SendSignal(ctx, sig, advisory); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiNotifier) SendText(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.SendText(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
