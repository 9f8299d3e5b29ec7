package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"rewards-backend/internal/models"
)

// Notifier is a best-effort side channel. Implementations log their own
// failures; nothing flows back into the ledger.
type Notifier interface {
	Notify(ctx context.Context, accountID string, event models.Event)
}

type NotifierFunc func(ctx context.Context, accountID string, event models.Event)

func (f NotifierFunc) Notify(ctx context.Context, accountID string, event models.Event) {
	f(ctx, accountID, event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, models.Event) {}

func NopNotifier() Notifier {
	return nopNotifier{}
}

// Fanout delivers each event to every registered sink on its own goroutine.
type Fanout struct {
	mu      sync.RWMutex
	sinks   map[string]Notifier
	log     *zap.Logger
	timeout time.Duration
}

func NewFanout(log *zap.Logger, timeout time.Duration) *Fanout {
	return &Fanout{
		sinks:   make(map[string]Notifier),
		log:     log,
		timeout: timeout,
	}
}

func (f *Fanout) Register(name string, sink Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sinks[name] = sink
}

func (f *Fanout) Notify(ctx context.Context, accountID string, event models.Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for name, sink := range f.sinks {
		go f.deliver(ctx, name, sink, accountID, event)
	}
}

func (f *Fanout) deliver(ctx context.Context, name string, sink Notifier, accountID string, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("notifier sink panicked",
				zap.String("sink", name),
				zap.String("account_id", accountID),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	sink.Notify(ctx, accountID, event)
}
