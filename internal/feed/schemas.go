package feed

const workoutChangedSchema = `{
  "type": "object",
  "title": "WorkoutChanged",
  "properties": {
    "workout_id": {"type": "string"},
    "kind": {"type": "string", "enum": ["running", "cycling"]},
    "description": {"type": "string"},
    "lat": {"type": "number"},
    "lng": {"type": "number"},
    "distance_km": {"type": "number", "exclusiveMinimum": 0},
    "duration_min": {"type": "number", "exclusiveMinimum": 0},
    "cadence_spm": {"type": "number"},
    "pace_min_per_km": {"type": "number"},
    "elevation_gain_m": {"type": "number", "minimum": 0},
    "speed_km_per_h": {"type": "number"},
    "created_at": {"type": "string", "format": "date-time"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "kind", "description", "lat", "lng", "distance_km", "duration_min", "created_at", "occurred_at"],
  "additionalProperties": false
}`

const workoutDeletedSchema = `{
  "type": "object",
  "title": "WorkoutDeleted",
  "properties": {
    "workout_id": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "occurred_at"],
  "additionalProperties": false
}`

const workoutsClearedSchema = `{
  "type": "object",
  "title": "WorkoutsCleared",
  "properties": {
    "removed": {"type": "integer"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["removed", "occurred_at"],
  "additionalProperties": false
}`

const workoutsSortedSchema = `{
  "type": "object",
  "title": "WorkoutsSorted",
  "properties": {
    "key": {"type": "string", "enum": ["date", "distance", "duration"]},
    "direction": {"type": "string", "enum": ["asc", "desc"]},
    "order": {"type": "array", "items": {"type": "string"}},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["key", "direction", "order", "occurred_at"],
  "additionalProperties": false
}`

// SchemaCatalogEntry maps an event type to its schema and the id used when
// no registry is configured.
type SchemaCatalogEntry struct {
	Schema   string
	StaticID int
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	EventWorkoutCreated: {Schema: workoutChangedSchema, StaticID: 1},
	EventWorkoutUpdated: {Schema: workoutChangedSchema, StaticID: 1},
	EventWorkoutDeleted: {Schema: workoutDeletedSchema, StaticID: 2},
	EventWorkoutsClear:  {Schema: workoutsClearedSchema, StaticID: 3},
	EventWorkoutsSorted: {Schema: workoutsSortedSchema, StaticID: 4},
}
