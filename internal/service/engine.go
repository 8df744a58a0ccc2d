package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/featureflags"
	"github.com/pawfam/backend/internal/lifecycle"
	"github.com/pawfam/backend/internal/observability/metrics"
	"github.com/pawfam/backend/internal/observability/tracing"
	"github.com/pawfam/backend/internal/security"
	"github.com/pawfam/backend/internal/security/audit"
	"go.opentelemetry.io/otel/attribute"
)

// Deps are the collaborators every resource service shares
type Deps struct {
	Authz  *security.AuthorizationService
	Audit  *audit.Logger
	Flags  featureflags.Set
	Idem   *Idempotency
	Logger *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Authz == nil {
		d.Authz = security.NewAuthorizationService(d.Logger)
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(d.Logger)
	}
	if d.Idem == nil {
		d.Idem = NewIdempotency(nil, 0, d.Logger)
	}
	return d
}

// lifecycleStore is the subset of the resource repositories the engine drives
type lifecycleStore[T any] interface {
	GetByID(ctx context.Context, id string) (T, error)
	GetForOwner(ctx context.Context, id, ownerID string) (T, error)
	ChangeStatus(ctx context.Context, change domain.StatusChange) (T, error)
	Delete(ctx context.Context, id, ownerID string, allowed []lifecycle.Status) (T, error)
}

// engine applies the lifecycle rules shared by orders, bookings and
// applications: read the current state, ask the machine, then write with the
// same precondition so a concurrent change cannot slip in between.
type engine[T any] struct {
	resource string
	machine  *lifecycle.Machine
	store    lifecycleStore[T]
	status   func(T) lifecycle.Status
	Deps
}

func newEngine[T any](resource string, m *lifecycle.Machine, store lifecycleStore[T], status func(T) lifecycle.Status, deps Deps) *engine[T] {
	return &engine[T]{resource: resource, machine: m, store: store, status: status, Deps: deps.withDefaults()}
}

// stateErr maps machine refusals onto the domain taxonomy
func stateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lifecycle.ErrUnknownStatus) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
}

// staleErr explains a lost write precondition with the rule that now refuses it
func staleErr(err error, check func(lifecycle.Status) error) error {
	var stale *domain.StaleStatusError
	if !errors.As(err, &stale) {
		return err
	}
	if cerr := check(stale.Current); cerr != nil {
		return stateErr(cerr)
	}
	return fmt.Errorf("%w: status changed concurrently to %s, retry", domain.ErrInvalidState, stale.Current)
}

// authorize refuses actors whose role lacks perm
func (e *engine[T]) authorize(actor domain.Actor, perm security.Permission) error {
	return e.Authz.ValidatePermission(actor, perm)
}

func (e *engine[T]) get(ctx context.Context, actor domain.Actor, id string) (item T, err error) {
	if err = e.authorize(actor, security.PermReadOwn); err != nil {
		return item, err
	}
	ctx, span := tracing.Start(ctx, e.resource, "get", attribute.String("id", id))
	item, err = e.load(ctx, actor, id)
	tracing.End(span, err)
	return item, err
}

// load reads the actor's own resource
func (e *engine[T]) load(ctx context.Context, actor domain.Actor, id string) (T, error) {
	item, err := e.store.GetForOwner(ctx, id, actor.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		err = fmt.Errorf("%s %w", e.resource, domain.ErrNotFound)
	}
	return item, err
}

func (e *engine[T]) record(ctx context.Context, actor domain.Actor, id, action string, from, to lifecycle.Status, err error) {
	metrics.ObserveTransition(e.resource, action, err)
	e.Audit.LogTransition(ctx, actor.UserID, e.resource, id, action, string(from), string(to), err)
}

// updateStatus is the vendor move along the transition table. It is not
// owner-scoped.
func (e *engine[T]) updateStatus(ctx context.Context, actor domain.Actor, id, raw string) (out T, err error) {
	ctx, span := tracing.Start(ctx, e.resource, "update_status", attribute.String("id", id))
	defer func() { tracing.End(span, err) }()

	if err = e.authorize(actor, security.PermUpdateStatus); err != nil {
		return out, err
	}
	target, err := e.machine.Parse(raw)
	if err != nil {
		return out, stateErr(err)
	}
	current, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("%s %w", e.resource, domain.ErrNotFound)
		}
		return out, err
	}
	from := e.status(current)
	defer func() { e.record(ctx, actor, id, "update_status", from, target, err) }()

	if err = e.machine.CheckTransition(from, target); err != nil {
		return out, stateErr(err)
	}
	out, err = e.store.ChangeStatus(ctx, domain.StatusChange{
		ID:   id,
		From: e.machine.Predecessors(target),
		To:   target,
	})
	if err != nil {
		return out, staleErr(err, func(s lifecycle.Status) error { return e.machine.CheckTransition(s, target) })
	}
	e.Logger.Info("status updated",
		slog.String("resource", e.resource),
		slog.String("id", id),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
	)
	return out, nil
}

// cancel is the owner's self-service cancel
func (e *engine[T]) cancel(ctx context.Context, actor domain.Actor, id string) (out T, err error) {
	ctx, span := tracing.Start(ctx, e.resource, "cancel", attribute.String("id", id))
	defer func() { tracing.End(span, err) }()

	if err = e.authorize(actor, security.PermCancelOwn); err != nil {
		return out, err
	}
	current, err := e.load(ctx, actor, id)
	if err != nil {
		return out, err
	}
	from, to := e.status(current), e.machine.CancelStatus()
	defer func() { e.record(ctx, actor, id, "cancel", from, to, err) }()

	if err = e.machine.CheckCancel(from); err != nil {
		return out, stateErr(err)
	}
	out, err = e.store.ChangeStatus(ctx, domain.StatusChange{
		ID:      id,
		OwnerID: actor.UserID,
		From:    e.machine.Cancellable(),
		To:      to,
	})
	if err != nil {
		return out, staleErr(err, e.machine.CheckCancel)
	}
	return out, nil
}

// edit loads the owner's resource, checks it is still editable and hands it
// to write together with the editable set for the conditional update.
func (e *engine[T]) edit(ctx context.Context, actor domain.Actor, id string, write func(current T, allowed []lifecycle.Status) (T, error)) (out T, err error) {
	ctx, span := tracing.Start(ctx, e.resource, "edit", attribute.String("id", id))
	defer func() { tracing.End(span, err) }()

	if err = e.authorize(actor, security.PermEditOwn); err != nil {
		return out, err
	}
	current, err := e.load(ctx, actor, id)
	if err != nil {
		return out, err
	}
	from := e.status(current)
	defer func() { e.record(ctx, actor, id, "edit", from, from, err) }()

	if err = e.machine.CheckEdit(from); err != nil {
		return out, stateErr(err)
	}
	out, err = write(current, e.machine.Editable())
	if err != nil {
		return out, staleErr(err, e.machine.CheckEdit)
	}
	return out, nil
}

// remove deletes the owner's resource. Only terminal resources may go unless
// the allow_active_delete flag is on.
func (e *engine[T]) remove(ctx context.Context, actor domain.Actor, id string) (out T, err error) {
	ctx, span := tracing.Start(ctx, e.resource, "delete", attribute.String("id", id))
	defer func() { tracing.End(span, err) }()

	if err = e.authorize(actor, security.PermDeleteOwn); err != nil {
		return out, err
	}
	current, err := e.load(ctx, actor, id)
	if err != nil {
		return out, err
	}
	from := e.status(current)
	defer func() { e.record(ctx, actor, id, "delete", from, "", err) }()

	check := e.machine.CheckDelete
	allowed := e.machine.Terminal()
	if e.Flags.Enabled(featureflags.AllowActiveDelete) {
		check = func(lifecycle.Status) error { return nil }
		allowed = e.machine.States()
	}
	if err = check(from); err != nil {
		return out, stateErr(err)
	}
	out, err = e.store.Delete(ctx, id, actor.UserID, allowed)
	if err != nil {
		return out, staleErr(err, check)
	}
	return out, nil
}
