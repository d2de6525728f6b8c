package auth

// Scopes understood by the workout API.
const (
	ScopeWorkoutsRead  = "workouts:read"
	ScopeWorkoutsWrite = "workouts:write"
)

// LocalSubject identifies requests served while tokens are not required.
const LocalSubject = "local"

// Local returns the claims granted to every request when auth is disabled.
func Local() *Claims {
	return &Claims{
		Subject: LocalSubject,
		Scopes: map[string]struct{}{
			ScopeWorkoutsRead:  {},
			ScopeWorkoutsWrite: {},
		},
	}
}
