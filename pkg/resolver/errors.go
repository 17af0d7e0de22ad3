package resolver

import "errors"

// Kind is the machine-readable class of a resolution error.
type Kind string

const (
	KindValidation              Kind = "validation"
	KindNotFoundEmpty           Kind = "not_found_empty"
	KindNotFoundWithSuggestions Kind = "not_found_with_suggestions"
	KindUpstream                Kind = "upstream_failure"
)

// Sentinels for errors.Is checks against *Error.
var (
	// ErrValidation indicates malformed request input. Nothing was fetched.
	ErrValidation = errors.New("invalid request")

	// ErrNotFoundEmpty indicates the community exists but has no qualifying posts.
	ErrNotFoundEmpty = errors.New("community has no recent posts")

	// ErrNotFoundWithSuggestions indicates the community does not exist and
	// related communities yielded nothing either.
	ErrNotFoundWithSuggestions = errors.New("community not found")

	// ErrUpstream indicates upstream failures prevented any result.
	ErrUpstream = errors.New("upstream failure")
)

// Error is the caller-visible failure of a resolution. Message is safe to show
// to end users; internal detail is only logged.
type Error struct {
	Kind        Kind     `json:"kind"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindValidation:
		return ErrValidation
	case KindNotFoundEmpty:
		return ErrNotFoundEmpty
	case KindNotFoundWithSuggestions:
		return ErrNotFoundWithSuggestions
	case KindUpstream:
		return ErrUpstream
	}
	return nil
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Suggestions: []string{}}
}

// AsError extracts a *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
