package lifecycle

import (
	"errors"

	"github.com/inov8tr/ecolab/internal/store"
)

// Kind classifies a lifecycle failure for callers that map errors to
// transport status codes.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPrecondition Kind = "precondition"
	KindPersistence  Kind = "persistence"
)

// Sentinel errors matched with errors.Is.
var (
	ErrNoParseableInput   = errors.New("no parseable files found (expected PDF or Excel)")
	ErrNoMetricsToConfirm = errors.New("no metrics to confirm")
	ErrInvalidPosition    = errors.New(`metrics contain position "UNKNOWN"`)
	ErrNotReady           = errors.New("binder test must be READY to create summary")
	ErrNoConfirmedMetrics = errors.New("no confirmed metrics to summarize")
	ErrInvalidComment     = errors.New("commentType and commentText are required")
	ErrInvalidDecision    = errors.New("summaryVersion and decision are required")
	ErrInvalidMetric      = errors.New("metricType and value are required")
	ErrInvalidTest        = errors.New("name is required")
	ErrInvalidFile        = errors.New("fileUrl is required")
	ErrMetricConfirmed    = errors.New("confirmed metrics cannot be repositioned")
	ErrArchived           = errors.New("binder test is archived")
)

// Error is returned by every Service operation that fails.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err. Unclassified errors are persistence failures;
// a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, store.ErrNotFound) {
		return KindNotFound
	}
	return KindPersistence
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func preconditionError(op string, err error) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

// classify wraps err for op, keeping an existing kind and mapping store
// lookups that matched nothing to KindNotFound.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
