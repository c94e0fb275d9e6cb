// Package notify delivers committed domain events to email, Kafka and the
// live seller feed. Delivery is best effort: failures are logged and never
// reach the request that produced the event.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"kart-checkout/internal/model"

	"github.com/rs/zerolog"
)

// Notifier handles one domain event.
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event model.Event) error

func (f NotifierFunc) Notify(ctx context.Context, event model.Event) error {
	return f(ctx, event)
}

// Dispatcher fans events out to notifiers on background goroutines.
type Dispatcher struct {
	notifiers []namedNotifier
	timeout   time.Duration
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

type namedNotifier struct {
	name string
	Notifier
}

// NewDispatcher creates a Dispatcher. Each delivery gets its own timeout.
func NewDispatcher(timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		timeout: timeout,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Register adds a notifier. It must be called before the first Dispatch.
func (d *Dispatcher) Register(name string, n Notifier) {
	d.notifiers = append(d.notifiers, namedNotifier{name: name, Notifier: n})
}

// Dispatch delivers events asynchronously.
func (d *Dispatcher) Dispatch(events ...model.Event) {
	for _, event := range events {
		for _, n := range d.notifiers {
			d.wg.Add(1)
			go d.deliver(n, event)
		}
	}
}

func (d *Dispatcher) deliver(n namedNotifier, event model.Event) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := n.Notify(ctx, event); err != nil && !errors.Is(err, ErrSkipped) {
		d.logger.Error().
			Err(err).
			Str("notifier", n.name).
			Str("event_type", string(event.Type)).
			Str("event_id", event.ID.String()).
			Msg("failed to deliver event")
		return
	}

	d.logger.Debug().
		Str("notifier", n.name).
		Str("event_type", string(event.Type)).
		Msg("event delivered")
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrSkipped is returned by a notifier that has nothing to do for an event.
var ErrSkipped = errors.New("event not handled by notifier")
