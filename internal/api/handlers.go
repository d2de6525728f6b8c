// Package api exposes HTTP handlers for the workout log.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thanhtrancs/Mapty/internal/app"
	"github.com/thanhtrancs/Mapty/internal/auth"
	"github.com/thanhtrancs/Mapty/internal/form"
	"github.com/thanhtrancs/Mapty/internal/listview"
	"github.com/thanhtrancs/Mapty/internal/mapview"
	"github.com/thanhtrancs/Mapty/internal/session"
	"github.com/thanhtrancs/Mapty/internal/store"
	"github.com/thanhtrancs/Mapty/internal/view"
	"github.com/thanhtrancs/Mapty/internal/workout"
)

// Surfaces are the rendered collaborators the handlers read back.
type Surfaces struct {
	List    *listview.List
	Map     *mapview.Layer
	Form    *form.State
	Notices *app.Notices
}

// Handler coordinates HTTP requests with the App.
type Handler struct {
	app      *app.App
	surfaces Surfaces
}

// NewHandler builds a Handler.
func NewHandler(a *app.App, surfaces Surfaces) *Handler {
	return &Handler{app: a, surfaces: surfaces}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/map", h.mapView)
	mux.HandleFunc("/v1/map/click", h.mapClick)
	mux.HandleFunc("/v1/form", h.form)
	mux.HandleFunc("/v1/form/submit", h.submit)
	mux.HandleFunc("/v1/form/cancel", h.cancel)
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/sort", h.sortWorkouts)
	mux.HandleFunc("/v1/workouts/nearby", h.nearby)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/notices", h.notices)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) mapView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, false) {
		return
	}
	writeJSON(w, http.StatusOK, MapResponse{
		Ready:    h.app.MapReady(),
		Snapshot: h.surfaces.Map.Snapshot(),
	})
}

func (h *Handler) mapClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, true) {
		return
	}

	var req workout.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if err := h.app.MapClicked(req); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.formResponse())
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !authorize(w, r, false) {
			return
		}
		writeJSON(w, http.StatusOK, h.formResponse())
	case http.MethodPut:
		h.fillForm(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) fillForm(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, true) {
		return
	}

	var req form.Values
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	var kind workout.Kind
	if req.Type != "" {
		parsed, err := workout.ParseKind(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		kind = parsed
		req.Type = string(kind)
	}
	if err := h.app.FillForm(kind, func() { h.surfaces.Form.Fill(req) }); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.formResponse())
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, true) {
		return
	}

	wasEditing := h.app.SessionState().Phase == session.Editing
	record, err := h.app.Submit(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}

	status := http.StatusCreated
	if wasEditing {
		status = http.StatusOK
	}
	writeJSON(w, status, toWorkoutView(record))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, true) {
		return
	}
	h.app.Cancel()
	writeJSON(w, http.StatusOK, h.formResponse())
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !authorize(w, r, false) {
			return
		}
		records := h.app.Workouts()
		items := make([]WorkoutView, 0, len(records))
		for _, rec := range records {
			items = append(items, toWorkoutView(rec))
		}
		writeJSON(w, http.StatusOK, ListWorkoutsResponse{
			Items:    items,
			Rendered: h.surfaces.List.Entries(),
		})
	case http.MethodDelete:
		if !authorize(w, r, true) {
			return
		}
		h.app.Clear(r.Context())
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) sortWorkouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, true) {
		return
	}

	var req SortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	key, err := store.ParseSortKey(req.Key)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	dir, err := store.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	records := h.app.Sort(r.Context(), key, dir)
	items := make([]WorkoutView, 0, len(records))
	for _, rec := range records {
		items = append(items, toWorkoutView(rec))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items, Rendered: h.surfaces.List.Entries()})
}

func (h *Handler) nearby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, false) {
		return
	}

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "lat and lng are required numbers")
		return
	}
	radius := 5.0
	if raw := q.Get("radius_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid radius_km")
			return
		}
		radius = parsed
	}

	records, err := h.app.Nearby(workout.Coordinates{Lat: lat, Lng: lng}, radius)
	if err != nil {
		writeAppError(w, err)
		return
	}
	items := make([]WorkoutView, 0, len(records))
	for _, rec := range records {
		items = append(items, toWorkoutView(rec))
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{Items: items})
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/workouts/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing workout id")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		h.deleteWorkout(w, r, id)
	case action == "edit" && r.Method == http.MethodPost:
		h.editWorkout(w, r, id)
	case action == "focus" && r.Method == http.MethodPost:
		h.focusWorkout(w, r, id)
	case action == "" || action == "edit" || action == "focus":
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown workout action")
	}
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !authorize(w, r, true) {
		return
	}
	if err := h.app.Delete(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) editWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !authorize(w, r, true) {
		return
	}
	if _, err := h.app.Edit(id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.formResponse())
}

func (h *Handler) focusWorkout(w http.ResponseWriter, r *http.Request, id string) {
	if !authorize(w, r, true) {
		return
	}
	record, err := h.app.Focus(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(record))
}

func (h *Handler) notices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !authorize(w, r, false) {
		return
	}
	writeJSON(w, http.StatusOK, NoticesResponse{Items: h.surfaces.Notices.Drain()})
}

func (h *Handler) formResponse() FormResponse {
	state := h.app.SessionState()
	resp := FormResponse{View: h.surfaces.Form.Snapshot(), Mode: state.Phase.String(), RecordID: state.RecordID}
	if origin, ok := h.app.FormOrigin(); ok {
		resp.Origin = &origin
	}
	return resp
}

// authorize checks the request claims, writing the error response itself.
func authorize(w http.ResponseWriter, r *http.Request, write bool) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if write && !claims.HasScope(auth.ScopeWorkoutsWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:write required")
		return false
	}
	if !write && !claims.CanRead() {
		writeError(w, http.StatusForbidden, "forbidden", "scope workouts:read required")
		return false
	}
	return true
}

func writeAppError(w http.ResponseWriter, err error) {
	var verr *workout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "workout not found")
	case errors.Is(err, session.ErrAlreadyEditing), errors.Is(err, session.ErrKindLocked):
		writeError(w, http.StatusConflict, "editing", err.Error())
	case errors.Is(err, session.ErrFormClosed):
		writeError(w, http.StatusConflict, "form_closed", "click the map to place the workout first")
	case errors.Is(err, app.ErrMapUnavailable):
		writeError(w, http.StatusConflict, "map_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// SortRequest is the payload for POST /v1/workouts/sort.
type SortRequest struct {
	Key       string `json:"key"`
	Direction string `json:"direction"`
}

// WorkoutView exposes a workout and its derived metrics.
type WorkoutView struct {
	ID             string              `json:"id"`
	Type           workout.Kind        `json:"type"`
	Date           time.Time           `json:"date"`
	Coords         workout.Coordinates `json:"coords"`
	DistanceKm     float64             `json:"distance_km"`
	DurationMin    float64             `json:"duration_min"`
	Description    string              `json:"description"`
	Clicks         int                 `json:"clicks"`
	CadenceSpm     *float64            `json:"cadence_spm,omitempty"`
	PaceMinPerKm   *float64            `json:"pace_min_per_km,omitempty"`
	ElevationGainM *float64            `json:"elevation_gain_m,omitempty"`
	SpeedKmPerH    *float64            `json:"speed_km_per_h,omitempty"`
}

// ListWorkoutsResponse packages workouts in display order with their
// rendered entries.
type ListWorkoutsResponse struct {
	Items    []WorkoutView `json:"items"`
	Rendered []view.Entry  `json:"rendered,omitempty"`
}

// FormResponse describes the shared form and the edit session.
type FormResponse struct {
	form.View
	Mode     string               `json:"mode"`
	RecordID string               `json:"record_id,omitempty"`
	Origin   *workout.Coordinates `json:"origin,omitempty"`
}

// MapResponse is the marker layer and whether the map is usable.
type MapResponse struct {
	Ready bool `json:"ready"`
	mapview.Snapshot
}

// NoticesResponse carries drained user notices.
type NoticesResponse struct {
	Items []app.Notice `json:"items"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutView(rec *workout.Workout) WorkoutView {
	v := WorkoutView{
		ID:          rec.ID,
		Type:        rec.Kind,
		Date:        rec.CreatedAt,
		Coords:      rec.Coords,
		DistanceKm:  rec.DistanceKm,
		DurationMin: rec.DurationMin,
		Description: rec.Description,
		Clicks:      rec.Clicks,
	}
	if run := rec.Running; run != nil {
		cadence, pace := run.CadenceSpm, run.PaceMinPerKm
		v.CadenceSpm, v.PaceMinPerKm = &cadence, &pace
	}
	if ride := rec.Cycling; ride != nil {
		elev, speed := ride.ElevationGainM, ride.SpeedKmPerH
		v.ElevationGainM, v.SpeedKmPerH = &elev, &speed
	}
	return v
}
