package out

import (
	"context"
	"log/slog"
	"time"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
)

// PollingWatcher observes the provider on an interval and emits an event only
// when the observed user or token changes. The first observation is always
// emitted.
type PollingWatcher struct {
	provider identityout.Provider
	interval time.Duration
	logger   *slog.Logger
}

var _ identityout.Watcher = (*PollingWatcher)(nil)

func NewPollingWatcher(provider identityout.Provider, interval time.Duration, logger *slog.Logger) *PollingWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollingWatcher{provider: provider, interval: interval, logger: logger}
}

func (w *PollingWatcher) Watch(ctx context.Context) <-chan domain.ProviderEvent {
	events := make(chan domain.ProviderEvent)
	go func() {
		defer close(events)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var last *domain.ProviderEvent
		for {
			if event, ok := w.observe(ctx); ok && !sameEvent(last, event) {
				select {
				case events <- event:
					last = &event
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return events
}

// observe reports false when the provider could not be asked; a failed poll
// says nothing about who is signed in.
func (w *PollingWatcher) observe(ctx context.Context) (domain.ProviderEvent, bool) {
	session, err := w.provider.CurrentUser(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("poll identity provider", "error", err)
		}
		return domain.ProviderEvent{}, false
	}
	if session == nil {
		return domain.ProviderEvent{}, true
	}
	user := session.User
	return domain.ProviderEvent{User: &user, IDToken: session.IDToken}, true
}

func sameEvent(last *domain.ProviderEvent, next domain.ProviderEvent) bool {
	if last == nil {
		return false
	}
	if last.IDToken != next.IDToken || (last.User == nil) != (next.User == nil) {
		return false
	}
	if last.User == nil {
		return true
	}
	return *last.User == *next.User
}
