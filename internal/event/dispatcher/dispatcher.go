// Package dispatcher implements event.Bus on top of a registry, a type chain
// resolver and a host provided scheduler.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"asyncevent/internal/event"
	"asyncevent/internal/event/resolver"
	"asyncevent/internal/validator"
)

type Dispatcher struct {
	registry  event.Registry
	resolver  *resolver.Resolver
	scheduler event.Scheduler
	logger    *zap.Logger
	policy    UnsubscribePolicy
}

func NewDispatcher(
	registry event.Registry,
	resolver *resolver.Resolver,
	scheduler event.Scheduler,
	logger *zap.Logger,
	policy UnsubscribePolicy,
) (*Dispatcher, error) {
	if err := validator.Validate("dispatcher", registry, resolver, scheduler, logger); err != nil {
		return nil, fmt.Errorf("failed to validate dispatcher deps: %w", err)
	}

	return &Dispatcher{
		registry:  registry,
		resolver:  resolver,
		scheduler: scheduler,
		logger:    logger.Named("dispatcher"),
		policy:    policy,
	}, nil
}

// Subscribe implements event.Bus.Subscribe.
func (d *Dispatcher) Subscribe(h event.Handler, types ...*event.Type) error {
	ref, err := reference(h)
	if err != nil {
		return err
	}
	if err := checkTypes(types); err != nil {
		return err
	}

	for _, t := range types {
		if !d.registry.Add(t, ref) {
			d.logger.Debug("handler already subscribed",
				zap.String("handler", ref.Name()),
				zap.String("event_type", t.Name()))
		}
	}

	return nil
}

// Unsubscribe implements event.Bus.Unsubscribe.
// With PolicyStrict every miss is returned, joined, once all types were
// processed.
func (d *Dispatcher) Unsubscribe(h event.Handler, types ...*event.Type) error {
	ref, err := reference(h)
	if err != nil {
		return err
	}
	if err := checkTypes(types); err != nil {
		return err
	}

	var misses []error
	for _, t := range types {
		if d.registry.Remove(t, ref.Key()) {
			continue
		}

		switch d.policy {
		case PolicyIgnore:
			d.logger.Debug("handler not subscribed",
				zap.String("handler", ref.Name()),
				zap.String("event_type", t.Name()))
		case PolicyStrict:
			misses = append(misses, fmt.Errorf("%w: handler %q, event type %s",
				event.ErrNotSubscribed, ref.Name(), t.Name()))
		default:
			d.logger.Warn("handler not subscribed",
				zap.String("handler", ref.Name()),
				zap.String("event_type", t.Name()),
				zap.Error(event.ErrNotSubscribed))
		}
	}

	return errors.Join(misses...)
}

// Fire implements event.Bus.Fire. The walk over the type chain runs as a
// single task on the scheduler; ctx is only used for its values.
func (d *Dispatcher) Fire(ctx context.Context, e event.Event) {
	if e == nil {
		d.logger.Warn("dropping nil event")
		return
	}

	ctx = context.WithoutCancel(ctx)
	task := event.Task{
		Name: "dispatch " + e.Type().Name(),
		Kind: event.TaskDispatch,
		Run: func(ctx context.Context) {
			d.dispatch(ctx, e)
		},
	}

	if err := d.scheduler.Go(ctx, task); err != nil {
		d.logger.Error("failed to schedule dispatch",
			zap.String("event_id", e.ID()),
			zap.String("event_type", e.Type().Name()),
			zap.Error(fmt.Errorf("%w: %w", event.ErrSchedulingFailed, err)))
	}
}

// Clear implements event.Bus.Clear.
func (d *Dispatcher) Clear() {
	d.registry.Clear()
	d.logger.Debug("cleared all subscriptions")
}

func (d *Dispatcher) dispatch(ctx context.Context, e event.Event) {
	logger := d.logger.With(
		zap.String("event_id", e.ID()),
		zap.String("event_type", e.Type().Name()))

	for _, t := range d.resolver.Resolve(e.Type()) {
		for _, h := range d.registry.Live(t) {
			fn := h.Fn
			task := event.Task{
				Name: h.Name,
				Kind: event.TaskHandler,
				Run: func(ctx context.Context) {
					fn(ctx, e)
				},
			}

			if err := d.scheduler.Go(ctx, task); err != nil {
				logger.Error("failed to schedule handler",
					zap.String("handler", h.Name),
					zap.String("subscribed_type", t.Name()),
					zap.Error(fmt.Errorf("%w: %w", event.ErrSchedulingFailed, err)))
			}
		}

		if pruned := d.registry.Prune(t); pruned > 0 {
			logger.Debug("pruned expired handlers",
				zap.String("subscribed_type", t.Name()),
				zap.Int("count", pruned))
		}
	}
}

func reference(h event.Handler) (event.Ref, error) {
	if h == nil {
		return nil, &event.InvalidHandlerError{Reason: "handler is nil"}
	}
	return h.Reference()
}

func checkTypes(types []*event.Type) error {
	for i, t := range types {
		if t == nil {
			return fmt.Errorf("event type at position %d: %w", i, event.ErrNilEventType)
		}
	}
	return nil
}
