package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thanhtrancs/Mapty/internal/feed"
	"github.com/thanhtrancs/Mapty/internal/form"
	"github.com/thanhtrancs/Mapty/internal/geo"
	"github.com/thanhtrancs/Mapty/internal/listview"
	"github.com/thanhtrancs/Mapty/internal/mapview"
	"github.com/thanhtrancs/Mapty/internal/persistence"
	"github.com/thanhtrancs/Mapty/internal/persistence/memory"
	"github.com/thanhtrancs/Mapty/internal/session"
	"github.com/thanhtrancs/Mapty/internal/store"
	"github.com/thanhtrancs/Mapty/internal/view"
	"github.com/thanhtrancs/Mapty/internal/workout"
)

var (
	home      = workout.Coordinates{Lat: 38.72, Lng: -9.14}
	createdAt = time.Date(2025, time.April, 14, 9, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	events []feed.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...feed.Event) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	app     *App
	store   *store.Store
	slot    *memory.Slot
	list    *listview.List
	layer   *mapview.Layer
	form    *form.State
	notices *Notices
	pub     *recordingPublisher
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, slot *memory.Slot, locator geo.Locator) *harness {
	t.Helper()

	n := 0
	st := store.New(
		store.WithClock(func() time.Time { return createdAt.Add(time.Duration(n) * time.Hour) }),
		store.WithIDGenerator(func() string { n++; return fmt.Sprintf("w-%d", n) }),
	)
	logs := &bytes.Buffer{}
	logger := log.New(logs, "", 0)
	h := &harness{
		store:   st,
		slot:    slot,
		list:    listview.New(),
		layer:   mapview.New(),
		form:    form.New(),
		notices: NewNotices(),
		pub:     &recordingPublisher{},
		logs:    logs,
	}
	h.app = New(Components{
		Store:       st,
		Persistence: persistence.NewAdapter(slot, persistence.WithLogger(logger)),
		View:        view.New(h.list, view.WithLogger(logger)),
		Session:     session.New(h.form),
		Locator:     locator,
		Map:         h.layer,
	}, WithNotifier(h.notices), WithPublisher(h.pub), WithLogger(logger), WithClock(func() time.Time { return createdAt }))
	h.app.Start(context.Background())
	return h
}

func located() geo.Locator {
	lat, lng := home.Lat, home.Lng
	return geo.NewStaticLocator(&lat, &lng)
}

func (h *harness) submitRun(t *testing.T, at workout.Coordinates, dist, dur, cadence string) (*workout.Workout, error) {
	t.Helper()
	require.True(t, h.layer.Click(at))
	require.NoError(t, h.app.ChangeKind(workout.KindRunning))
	h.form.Fill(form.Values{Distance: dist, Duration: dur, Cadence: cadence})
	return h.app.Submit(context.Background())
}

func (h *harness) submitRide(t *testing.T, at workout.Coordinates, dist, dur, elev string) (*workout.Workout, error) {
	t.Helper()
	require.True(t, h.layer.Click(at))
	require.NoError(t, h.app.ChangeKind(workout.KindCycling))
	h.form.Fill(form.Values{Distance: dist, Duration: dur, Elevation: elev})
	return h.app.Submit(context.Background())
}

func (h *harness) listIDs() []string {
	entries := h.list.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func (h *harness) saved(t *testing.T) []*workout.Workout {
	t.Helper()
	return persistence.NewAdapter(h.slot).Load(context.Background())
}

func TestStartCentersMap(t *testing.T) {
	h := newHarness(t, memory.New(), located())

	require.True(t, h.app.MapReady())
	center, zoom := h.layer.View()
	require.Equal(t, home, center)
	require.Equal(t, view.DefaultZoom, zoom)
	require.Empty(t, h.notices.Drain())
}

func TestStartWithoutPositionDegrades(t *testing.T) {
	slot := memory.New()
	first := newHarness(t, slot, located())
	_, err := first.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)

	h := newHarness(t, slot, geo.NewStaticLocator(nil, nil))

	require.False(t, h.app.MapReady())
	require.Equal(t, []string{NoticePositionUnavailable}, messages(h.notices.Drain()))
	require.False(t, h.layer.Click(home), "nobody listens to map clicks")
	require.ErrorIs(t, h.app.MapClicked(home), ErrMapUnavailable)
	_, err = h.app.Focus(context.Background(), "w-1")
	require.ErrorIs(t, err, ErrMapUnavailable)

	require.Equal(t, []string{"w-1"}, h.listIDs(), "saved workouts are still listed")
	require.Empty(t, h.layer.Markers())

	_, err = h.app.Edit("w-1")
	require.NoError(t, err)
	h.app.Cancel()
	require.NoError(t, h.app.Delete(context.Background(), "w-1"))
	require.Empty(t, h.listIDs())
}

func TestCreateRunningWorkout(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	at := workout.Coordinates{Lat: 39, Lng: -12}

	w, err := h.submitRun(t, at, "5.2", "24", "178")
	require.NoError(t, err)

	dist, dur := 5.2, 24.0
	require.Equal(t, dur/dist, w.Running.PaceMinPerKm)
	require.InDelta(t, 4.615, w.Running.PaceMinPerKm, 0.001)
	require.Equal(t, "Running on April 14", w.Description)

	require.Equal(t, []string{w.ID}, h.listIDs())
	pace, _ := h.list.Entries()[0].Value(view.FieldPace)
	require.Equal(t, "4.6", pace)

	markers := h.layer.Markers()
	require.Len(t, markers, 1)
	require.Equal(t, at, markers[0].At)
	require.Equal(t, workout.KindRunning.Icon()+" Running on April 14", markers[0].Popup.Content)

	require.Equal(t, []*workout.Workout{w}, h.saved(t))
	require.Equal(t, []string{feed.EventWorkoutCreated}, h.pub.types())
	require.Equal(t, session.Idle, h.app.SessionState().Phase)
	require.False(t, h.form.Snapshot().Visible)
}

func TestInvalidSubmissionChangesNothing(t *testing.T) {
	h := newHarness(t, memory.New(), located())

	_, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "-1", "24", "178")
	require.ErrorIs(t, err, workout.ErrInvalidInput)

	require.Zero(t, h.store.Len())
	require.Empty(t, h.listIDs())
	require.Empty(t, h.layer.Markers())
	require.Empty(t, h.saved(t))
	require.Empty(t, h.pub.events)
	require.Equal(t, []string{NoticeInvalidInput}, messages(h.notices.Drain()))
	require.True(t, h.form.Snapshot().Visible, "form stays open")

	_, err = h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "abc", "24", "178")
	require.ErrorIs(t, err, workout.ErrInvalidInput)
	require.Zero(t, h.store.Len())
}

func TestCyclingAllowsZeroElevation(t *testing.T) {
	h := newHarness(t, memory.New(), located())

	w, err := h.submitRide(t, workout.Coordinates{Lat: 40, Lng: -8}, "27", "95", "0")
	require.NoError(t, err)
	require.Equal(t, 27.0/95.0, w.Cycling.SpeedKmPerH)
	require.Equal(t, "cycling-popup", h.layer.Markers()[0].Popup.ClassName)
}

func TestTwoCreatesThenDeleteFirst(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	first, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)
	second, err := h.submitRide(t, workout.Coordinates{Lat: 40, Lng: -8}, "20", "60", "100")
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, first.ID}, h.listIDs())

	require.NoError(t, h.app.Delete(context.Background(), first.ID))

	require.Equal(t, 1, h.store.Len())
	require.Equal(t, []string{second.ID}, h.listIDs())
	markers := h.layer.Markers()
	require.Len(t, markers, 1)
	require.Equal(t, second.Coords, markers[0].At)
	require.Len(t, h.saved(t), 1)

	require.ErrorIs(t, h.app.Delete(context.Background(), first.ID), store.ErrNotFound)
	require.Equal(t, []string{feed.EventWorkoutCreated, feed.EventWorkoutCreated, feed.EventWorkoutDeleted}, h.pub.types())
}

func TestEditCommitUpdatesInPlace(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	w, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)
	writesBefore := h.list.Writes()

	_, err = h.app.Edit(w.ID)
	require.NoError(t, err)
	snap := h.form.Snapshot()
	require.False(t, snap.ControlsEnabled)
	require.Equal(t, form.Values{Type: "running", Distance: "5", Duration: "25", Cadence: "170"}, snap.Values)

	require.ErrorIs(t, h.app.Delete(context.Background(), w.ID), session.ErrAlreadyEditing)
	require.ErrorIs(t, h.app.ChangeKind(workout.KindCycling), session.ErrKindLocked)
	require.True(t, h.layer.Click(home))
	require.Equal(t, []string{NoticeFinishEditing}, messages(h.notices.Drain()))

	h.form.Fill(form.Values{Distance: "10", Duration: "25", Cadence: "170"})
	updated, err := h.app.Submit(context.Background())
	require.NoError(t, err)

	require.Equal(t, w.ID, updated.ID)
	require.Equal(t, w.CreatedAt, updated.CreatedAt)
	require.Equal(t, workout.KindRunning, updated.Kind)
	require.Equal(t, 2.5, updated.Running.PaceMinPerKm)

	found, err := h.store.FindByID(w.ID)
	require.NoError(t, err)
	require.Equal(t, 10.0, found.DistanceKm)

	require.Equal(t, writesBefore+2, h.list.Writes(), "distance and pace rewritten")
	require.Len(t, h.layer.Markers(), 1)
	require.Equal(t, session.Idle, h.app.SessionState().Phase)
	require.True(t, h.form.Snapshot().ControlsEnabled)
	require.Equal(t, 10.0, h.saved(t)[0].DistanceKm)
	require.Equal(t, feed.EventWorkoutUpdated, h.pub.types()[1])
}

func TestFillFormWhileEditingKeepsKind(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	w, err := h.submitRide(t, workout.Coordinates{Lat: 39, Lng: -12}, "20", "60", "150")
	require.NoError(t, err)
	_, err = h.app.Edit(w.ID)
	require.NoError(t, err)

	filled := 0
	err = h.app.FillForm(workout.KindRunning, func() { filled++ })
	require.ErrorIs(t, err, session.ErrKindLocked)
	require.Zero(t, filled, "values are not written when the kind is refused")
	require.Equal(t, "cycling", h.form.Kind())

	require.NoError(t, h.app.FillForm(workout.KindCycling, func() {
		h.form.Fill(form.Values{Distance: "30", Duration: "60", Elevation: "150"})
	}))
	require.NoError(t, h.app.FillForm("", func() { filled++ }))
	require.Equal(t, 1, filled)

	updated, err := h.app.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, workout.KindCycling, updated.Kind)
	require.Equal(t, 30.0, updated.DistanceKm)
}

func TestEditOfVanishedWorkoutAborts(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	w, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)

	_, err = h.app.Edit(w.ID)
	require.NoError(t, err)
	require.NoError(t, h.store.Remove(w.ID))

	h.form.Fill(form.Values{Distance: "10", Duration: "25", Cadence: "170"})
	_, err = h.app.Submit(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Equal(t, session.State{Phase: session.Editing, RecordID: w.ID}, h.app.SessionState())
	require.Len(t, h.pub.events, 1)

	h.app.Cancel()
	require.Equal(t, session.Idle, h.app.SessionState().Phase)

	_, err = h.app.Edit("missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClearThenReloadIsEmpty(t *testing.T) {
	slot := memory.New()
	h := newHarness(t, slot, located())
	_, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)
	_, err = h.submitRide(t, workout.Coordinates{Lat: 40, Lng: -8}, "20", "60", "100")
	require.NoError(t, err)

	h.app.Clear(context.Background())
	require.Zero(t, h.store.Len())
	require.Empty(t, h.listIDs())
	require.Empty(t, h.layer.Markers())

	_, err = slot.Get(context.Background(), persistence.Key)
	require.ErrorIs(t, err, persistence.ErrSlotEmpty)

	reloaded := newHarness(t, slot, located())
	require.Zero(t, reloaded.store.Len())
	require.Empty(t, reloaded.listIDs())
}

func TestReloadRestoresWorkoutsAndOrder(t *testing.T) {
	slot := memory.New()
	h := newHarness(t, slot, located())
	run, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)
	ride, err := h.submitRide(t, workout.Coordinates{Lat: 40, Lng: -8}, "20", "60", "100")
	require.NoError(t, err)

	reloaded := newHarness(t, slot, located())
	require.Equal(t, h.store.List(), reloaded.store.List())
	require.Equal(t, []string{ride.ID, run.ID}, reloaded.listIDs())
	require.Len(t, reloaded.layer.Markers(), 2)
}

func TestSortIsSavedAndRendered(t *testing.T) {
	slot := memory.New()
	h := newHarness(t, slot, located())
	short, err := h.submitRun(t, workout.Coordinates{Lat: 39, Lng: -12}, "5", "25", "170")
	require.NoError(t, err)
	long, err := h.submitRun(t, workout.Coordinates{Lat: 39.1, Lng: -12}, "12", "70", "165")
	require.NoError(t, err)
	mid, err := h.submitRide(t, workout.Coordinates{Lat: 40, Lng: -8}, "8", "30", "10")
	require.NoError(t, err)
	markers := h.layer.Markers()

	display := h.app.Sort(context.Background(), store.SortByDistance, store.Ascending)
	require.Equal(t, []string{short.ID, mid.ID, long.ID}, ids(display))
	require.Equal(t, []string{short.ID, mid.ID, long.ID}, h.listIDs())
	require.Equal(t, markers, h.layer.Markers(), "markers stay put")

	reloaded := newHarness(t, slot, located())
	require.Equal(t, []string{short.ID, mid.ID, long.ID}, reloaded.listIDs())
	require.Equal(t, feed.EventWorkoutsSorted, h.pub.types()[3])
}

func TestFocusMovesMapAndCountsClicks(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	at := workout.Coordinates{Lat: 41.15, Lng: -8.61}
	w, err := h.submitRun(t, at, "5", "25", "170")
	require.NoError(t, err)

	focused, err := h.app.Focus(context.Background(), w.ID)
	require.NoError(t, err)
	require.Equal(t, 1, focused.Clicks)

	center, zoom := h.layer.View()
	require.Equal(t, at, center)
	require.Equal(t, view.DefaultZoom, zoom)
	require.Equal(t, 1, h.saved(t)[0].Clicks)

	_, err = h.app.Focus(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestNearby(t *testing.T) {
	h := newHarness(t, memory.New(), located())
	lisbon, err := h.submitRun(t, workout.Coordinates{Lat: 38.72, Lng: -9.14}, "5", "25", "170")
	require.NoError(t, err)
	_, err = h.submitRun(t, workout.Coordinates{Lat: 41.15, Lng: -8.61}, "5", "25", "170")
	require.NoError(t, err)

	near, err := h.app.Nearby(home, 10)
	require.NoError(t, err)
	require.Equal(t, []string{lisbon.ID}, ids(near))

	_, err = h.app.Nearby(home, 0)
	require.ErrorIs(t, err, workout.ErrInvalidInput)
	_, err = h.app.Nearby(workout.Coordinates{Lat: 91}, 5)
	require.ErrorIs(t, err, workout.ErrInvalidInput)
}

type brokenSlot struct{ err error }

func (b brokenSlot) Get(context.Context, string) ([]byte, error) { return nil, b.err }
func (b brokenSlot) Put(context.Context, string, []byte) error   { return b.err }
func (b brokenSlot) Delete(context.Context, string) error        { return b.err }

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	notices := NewNotices()
	list := listview.New()
	layer := mapview.New()
	f := form.New()
	a := New(Components{
		Store:       store.New(),
		Persistence: persistence.NewAdapter(brokenSlot{err: errors.New("read-only")}, persistence.WithLogger(log.New(&bytes.Buffer{}, "", 0))),
		View:        view.New(list),
		Session:     session.New(f),
		Locator:     located(),
		Map:         layer,
	}, WithNotifier(notices), WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	a.Start(context.Background())

	require.True(t, layer.Click(workout.Coordinates{Lat: 39, Lng: -12}))
	f.Fill(form.Values{Distance: "5", Duration: "25", Cadence: "170"})
	_, err := a.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, a.Workouts(), 1)
	require.Len(t, list.Entries(), 1)
	require.Equal(t, []string{NoticeSaveFailed}, messages(notices.Drain()))
}

func messages(notices []Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Message)
	}
	return out
}

func ids(records []*workout.Workout) []string {
	out := make([]string, 0, len(records))
	for _, w := range records {
		out = append(out, w.ID)
	}
	return out
}
