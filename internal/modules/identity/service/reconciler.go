package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/credential"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/metrics"
	"readjourney/internal/platform/token"
)

// Reconciler owns the process-wide identity record. It is the only writer of
// the identity cache; everything else reads through Current, BearerToken or a
// subscription.
type Reconciler struct {
	mu          sync.Mutex
	record      domain.Record
	fingerprint string

	cache   identityout.Cache
	clock   clock.Clock
	metrics metrics.Recorder
	logger  *slog.Logger

	subs    map[uint64]chan domain.Record
	nextSub uint64
}

var _ credential.Store = (*Reconciler)(nil)

func NewReconciler(cache identityout.Cache, clk clock.Clock, rec metrics.Recorder, logger *slog.Logger) *Reconciler {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		record:  domain.Record{State: domain.StateUnauthenticated},
		cache:   cache,
		clock:   clk,
		metrics: rec,
		logger:  logger,
		subs:    map[uint64]chan domain.Record{},
	}
}

func (r *Reconciler) Current() domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record.Clone()
}

// BearerToken returns the cached token unless it is a JWT past its expiry.
func (r *Reconciler) BearerToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.usable(r.record.Token) {
		return ""
	}
	return r.record.Token
}

// Restore loads the persisted identity. An expired token is dropped from
// memory; the next provider event or sign-in replaces it.
func (r *Reconciler) Restore(ctx context.Context) (domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok, err := r.cache.Load(ctx)
	if err != nil {
		r.metrics.Error("identity", apperrors.KindName(err))
		return r.record.Clone(), fmt.Errorf("restore identity: %w", err)
	}
	next := domain.Record{Version: r.record.Version + 1, State: domain.StateUnauthenticated}
	r.fingerprint = ""
	if ok {
		next.User = snapshot.User
		next.Token = snapshot.Token
		next.TokenSource = snapshot.TokenSource
		if next.Token != "" && !r.usable(next.Token) {
			r.logger.Info("cached backend token expired", "user_id", userID(next.User))
			next.Token = ""
		}
		if next.Authenticated() {
			next.State = domain.StateAuthenticatedCached
		}
		r.fingerprint, _ = domain.Fingerprint(snapshot)
	}
	r.commit(next)
	return next.Clone(), nil
}

// Apply reconciles one provider event.
func (r *Reconciler) Apply(ctx context.Context, event domain.ProviderEvent) (domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.record
	decision := domain.Transition(current, event, r.usable(current.Token))
	if decision.Reconciled {
		reconciling := current.Clone()
		reconciling.State = domain.StateReconciling
		r.commit(reconciling)
		r.logger.Info("reconciling identity", "from_user", userID(current.User), "to_user", userID(decision.Next.User))
	}
	switch decision.Write {
	case domain.WriteNone:
		return current.Clone(), nil
	case domain.WriteSave:
		if err := r.persist(ctx, decision.Next); err != nil {
			r.commit(current)
			return current.Clone(), err
		}
	case domain.WriteClear:
		if err := r.clearCache(ctx); err != nil {
			r.commit(current)
			return current.Clone(), err
		}
	}
	r.commit(decision.Next)
	return decision.Next.Clone(), nil
}

// Establish records a fresh sign-in. User and backend token are saved together.
func (r *Reconciler) Establish(ctx context.Context, user domain.RemoteUser, backendToken string) (domain.Record, error) {
	if backendToken == "" {
		return r.Current(), apperrors.Auth("establish identity", "sign-in did not return a token", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	next := domain.Record{
		Version:     r.record.Version + 1,
		User:        &user,
		Token:       backendToken,
		TokenSource: domain.TokenSourceBackend,
		State:       domain.StateAuthenticatedFresh,
	}
	if err := r.persist(ctx, next); err != nil {
		return r.record.Clone(), err
	}
	r.commit(next)
	return next.Clone(), nil
}

// Clear drops the identity. Clearing an empty identity writes nothing.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearLocked(ctx)
}

// Invalidate is called by transports when the backend rejected the token.
func (r *Reconciler) Invalidate(ctx context.Context, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record.Empty() {
		return
	}
	r.logger.Warn("backend rejected cached identity", "user_id", userID(r.record.User), "error", cause)
	if err := r.clearLocked(ctx); err != nil {
		r.logger.Error("clear rejected identity", "error", err)
	}
}

// Subscribe returns a channel receiving every committed record. Slow
// subscribers only see the latest one. The returned func unsubscribes.
func (r *Reconciler) Subscribe() (<-chan domain.Record, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan domain.Record, 1)
	r.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.subs, id)
			close(ch)
		})
	}
}

func (r *Reconciler) clearLocked(ctx context.Context) error {
	if r.record.Empty() && r.record.State == domain.StateUnauthenticated {
		return nil
	}
	if err := r.clearCache(ctx); err != nil {
		return err
	}
	r.commit(domain.Record{Version: r.record.Version + 1, State: domain.StateUnauthenticated})
	return nil
}

func (r *Reconciler) persist(ctx context.Context, next domain.Record) error {
	snapshot := next.Snapshot()
	fp, err := domain.Fingerprint(snapshot)
	if err != nil {
		return err
	}
	if fp == r.fingerprint {
		return nil
	}
	if err := r.cache.Save(ctx, snapshot); err != nil {
		r.metrics.Error("identity", apperrors.KindName(err))
		return fmt.Errorf("save identity: %w", err)
	}
	r.metrics.IdentityCacheWrite("save")
	r.fingerprint = fp
	return nil
}

func (r *Reconciler) clearCache(ctx context.Context) error {
	if err := r.cache.Clear(ctx); err != nil {
		r.metrics.Error("identity", apperrors.KindName(err))
		return fmt.Errorf("clear identity: %w", err)
	}
	r.metrics.IdentityCacheWrite("clear")
	r.fingerprint = ""
	return nil
}

// commit must be called with mu held.
func (r *Reconciler) commit(next domain.Record) {
	changedState := next.State != r.record.State
	r.record = next
	if changedState {
		r.metrics.IdentityTransition(string(next.State))
		r.logger.Debug("identity state", "state", next.State, "version", next.Version)
	}
	for _, ch := range r.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next.Clone()
	}
}

func (r *Reconciler) usable(raw string) bool {
	return raw != "" && !token.Expired(raw, r.clock.Now())
}

func userID(u *domain.RemoteUser) string {
	if u == nil {
		return ""
	}
	return u.ID
}
