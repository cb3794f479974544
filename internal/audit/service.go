package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord is returned when a record has no destination number.
var ErrInvalidRecord = errors.New("audit: invalid record")

// Recorder writes emergency-call records.
//
// IMPORTANT:
// - Recording is best-effort. The call has already been placed when Record runs,
//   so callers inspect the Result for logging only and never fail the request on it.
// - A nil repository means no privileged store is configured; Record is skipped.
type Recorder struct {
	repo  Repository
	clock func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, clock: time.Now}
}

// WithClock overrides the time source.
func (r *Recorder) WithClock(clock func() time.Time) *Recorder {
	r.clock = clock
	return r
}

// Result describes what happened to one Record call.
type Result struct {
	ID      string
	Skipped bool
	Err     error
}

func (r *Recorder) Record(ctx context.Context, rec EmergencyCallRecord) Result {
	if r == nil || r.repo == nil {
		return Result{Skipped: true}
	}
	if rec.ToNumber == "" {
		return Result{Err: ErrInvalidRecord}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock().UTC()
	}
	if err := r.repo.Insert(ctx, rec); err != nil {
		return Result{ID: rec.ID, Err: err}
	}
	return Result{ID: rec.ID}
}
