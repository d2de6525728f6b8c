// Package app dispatches user events through the edit session, the store,
// the durable slot and the rendered views.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/thanhtrancs/Mapty/internal/feed"
	"github.com/thanhtrancs/Mapty/internal/geo"
	"github.com/thanhtrancs/Mapty/internal/observability"
	"github.com/thanhtrancs/Mapty/internal/persistence"
	"github.com/thanhtrancs/Mapty/internal/session"
	"github.com/thanhtrancs/Mapty/internal/store"
	"github.com/thanhtrancs/Mapty/internal/view"
	"github.com/thanhtrancs/Mapty/internal/workout"
)

// ErrMapUnavailable is returned by map operations when no position was found
// at startup.
var ErrMapUnavailable = errors.New("map unavailable")

// Components are the collaborators an App drives.
type Components struct {
	Store       *store.Store
	Persistence *persistence.Adapter
	View        *view.Synchronizer
	Session     *session.Session
	Locator     geo.Locator
	Map         view.MapView
}

// Option configures an App.
type Option func(*App)

// WithNotifier routes user notices to n.
func WithNotifier(n Notifier) Option {
	return func(a *App) {
		if n != nil {
			a.notifier = n
		}
	}
}

// WithPublisher publishes change events through p.
func WithPublisher(p feed.Publisher) Option {
	return func(a *App) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithLogger overrides the app logger.
func WithLogger(logger *log.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// App owns one user's workouts. Every exported method is one event and runs
// to completion before the next one starts.
type App struct {
	mu sync.Mutex

	store   *store.Store
	persist *persistence.Adapter
	view    *view.Synchronizer
	session *session.Session
	locator geo.Locator
	mapView view.MapView

	notifier  Notifier
	publisher feed.Publisher
	logger    *log.Logger
	now       func() time.Time
}

// New builds an App. Start must be called before serving events.
func New(c Components, opts ...Option) *App {
	a := &App{
		store:     c.Store,
		persist:   c.Persistence,
		view:      c.View,
		session:   c.Session,
		locator:   c.Locator,
		mapView:   c.Map,
		notifier:  NewNotices(),
		publisher: feed.Discard{},
		logger:    log.New(log.Writer(), "[app] ", log.LstdFlags|log.Lshortfile),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start restores saved workouts, renders them and looks up the user's
// position. Without a position the map stays unavailable; list features keep
// working.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.store.Replace(a.persist.Load(ctx))
	a.view.Load(a.store.Display())
	observability.SetWorkouts(a.store.Len())

	if a.locator == nil || a.mapView == nil {
		a.notifier.Notify(NoticePositionUnavailable)
		return
	}
	pos, err := a.locator.CurrentPosition(ctx)
	if err != nil {
		a.logger.Printf("locate user: %v", err)
		a.notifier.Notify(NoticePositionUnavailable)
		return
	}
	a.view.Attach(a.mapView, pos)
	a.mapView.OnClick(a.onMapClick)
}

// MapReady reports whether a position was found at startup.
func (a *App) MapReady() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view.MapAttached()
}

func (a *App) onMapClick(coords workout.Coordinates) {
	if err := a.MapClicked(coords); err != nil {
		a.logger.Printf("map click ignored: %v", err)
	}
}

// MapClicked opens the form for a new workout at coords.
func (a *App) MapClicked(coords workout.Coordinates) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.view.MapAttached() {
		return ErrMapUnavailable
	}
	err := a.session.Open(coords)
	if errors.Is(err, session.ErrAlreadyEditing) {
		a.notifier.Notify(NoticeFinishEditing)
	}
	return err
}

// ChangeKind switches the variant row of the form.
func (a *App) ChangeKind(kind workout.Kind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ToggleKind(kind)
}

// FillForm applies a form edit as one event. A non-empty kind selects the
// variant row first; fill then writes the typed values.
func (a *App) FillForm(kind workout.Kind, fill func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if kind != "" {
		if err := a.session.ToggleKind(kind); err != nil {
			return err
		}
	}
	if fill != nil {
		fill()
	}
	return nil
}

// Submit interprets the form against the session: a new workout while idle,
// an update of the edited workout otherwise. Invalid input changes nothing.
func (a *App) Submit(ctx context.Context) (*workout.Workout, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sub, err := a.session.Submission()
	if err != nil {
		var verr *workout.ValidationError
		if errors.As(err, &verr) {
			observability.RecordRejected(verr.Field)
			a.notifier.Notify(NoticeInvalidInput)
		}
		return nil, err
	}

	if sub.Update {
		return a.update(ctx, sub)
	}
	return a.create(ctx, sub)
}

func (a *App) create(ctx context.Context, sub session.Submission) (*workout.Workout, error) {
	w, err := a.store.Create(sub.Input)
	if err != nil {
		var verr *workout.ValidationError
		if errors.As(err, &verr) {
			observability.RecordRejected(verr.Field)
			a.notifier.Notify(NoticeInvalidInput)
		}
		return nil, err
	}

	a.save(ctx)
	a.view.Created(w)
	a.session.Commit()
	a.mutated(ctx, "create", feed.Created(w, a.now()))
	return w, nil
}

func (a *App) update(ctx context.Context, sub session.Submission) (*workout.Workout, error) {
	w, err := a.store.Update(sub.RecordID, sub.Input.Metrics)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("update %s: %w", sub.RecordID, err)
		}
		var verr *workout.ValidationError
		if errors.As(err, &verr) {
			observability.RecordRejected(verr.Field)
			a.notifier.Notify(NoticeInvalidInput)
		}
		return nil, err
	}

	a.save(ctx)
	if _, err := a.view.Updated(w); err != nil {
		a.logger.Printf("render update of %s: %v", w.ID, err)
	}
	a.session.Commit()
	a.mutated(ctx, "update", feed.Updated(w, a.now()))
	return w, nil
}

// Edit starts editing the workout id.
func (a *App) Edit(id string) (*workout.Workout, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, err := a.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := a.session.Begin(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Cancel closes the form, abandoning any edit in progress.
func (a *App) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.Cancel()
}

// Delete removes the workout id. Deleting is locked while an edit is open.
func (a *App) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session.State().Phase == session.Editing {
		return session.ErrAlreadyEditing
	}
	if err := a.store.Remove(id); err != nil {
		return err
	}

	a.save(ctx)
	a.view.Deleted(id)
	a.mutated(ctx, "delete", feed.Deleted(id, a.now()))
	return nil
}

// Clear removes every workout and the durable slot.
func (a *App) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session.State().Phase == session.Editing {
		a.session.Cancel()
	}
	removed := a.store.Len()
	a.store.RemoveAll()
	if err := a.persist.Reset(ctx); err != nil {
		a.logger.Printf("reset slot: %v", err)
		a.notifier.Notify(NoticeSaveFailed)
	}
	a.view.Cleared()
	a.mutated(ctx, "clear", feed.Cleared(removed, a.now()))
}

// Sort reorders the workouts and returns them in display order. The order is
// saved.
func (a *App) Sort(ctx context.Context, key store.SortKey, dir store.Direction) []*workout.Workout {
	a.mu.Lock()
	defer a.mu.Unlock()

	display := a.store.Sort(key, dir)
	a.save(ctx)
	a.view.Sorted(display)

	order := make([]string, 0, len(display))
	for _, w := range display {
		order = append(order, w.ID)
	}
	a.mutated(ctx, "sort", feed.Sorted(string(key), string(dir), order, a.now()))
	return display
}

// Focus centers the map on the workout id and counts the click.
func (a *App) Focus(ctx context.Context, id string) (*workout.Workout, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.view.MapAttached() {
		return nil, ErrMapUnavailable
	}
	w, err := a.store.Touch(id)
	if err != nil {
		return nil, err
	}
	if err := a.view.Focus(id); err != nil {
		return nil, err
	}
	a.save(ctx)
	observability.RecordMutation("focus")
	return w, nil
}

// Workouts returns the workouts in display order.
func (a *App) Workouts() []*workout.Workout {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Display()
}

// Nearby returns workouts within radiusKm of center, nearest first.
func (a *App) Nearby(center workout.Coordinates, radiusKm float64) ([]*workout.Workout, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, &workout.ValidationError{Field: "radius_km", Reason: "must be greater than zero"}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Within(center, radiusKm), nil
}

// SessionState returns the edit session state.
func (a *App) SessionState() session.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.State()
}

// FormOrigin returns the position the open form was placed at.
func (a *App) FormOrigin() (workout.Coordinates, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Origin()
}

// save writes the whole collection through. A failed write keeps the
// in-memory state; the next mutation writes the full snapshot again.
func (a *App) save(ctx context.Context) {
	if err := a.persist.Save(ctx, a.store.List()); err != nil {
		a.logger.Printf("save workouts: %v", err)
		a.notifier.Notify(NoticeSaveFailed)
	}
}

func (a *App) mutated(ctx context.Context, op string, event feed.Event) {
	observability.RecordMutation(op)
	observability.SetWorkouts(a.store.Len())
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Printf("publish %s: %v", event.Type, err)
	}
}
