package comps

import "fmt"

// ConfigError reports an invalid SearchConfig. It is returned before any
// model or network call is made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// ProfileError reports that the target profile could not be built. It is
// fatal for the search: nothing downstream can run without a profile.
type ProfileError struct {
	Err error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("target profile: %v", e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// ProviderKind classifies an external provider failure.
type ProviderKind string

const (
	ProviderRateLimited     ProviderKind = "rate_limited"
	ProviderTimeout         ProviderKind = "timeout"
	ProviderServerError     ProviderKind = "server_error"
	ProviderInvalidResponse ProviderKind = "invalid_response"
)

// ProviderError wraps a failure from the language-model or embedding
// provider. Per-candidate provider errors are absorbed as rejections;
// profile-stage provider errors abort the search.
type ProviderError struct {
	Kind ProviderKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure. Failures at finalization never
// fail the search itself; they surface as session warnings.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
