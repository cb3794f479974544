package audit

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	records []EmergencyCallRecord

	// Fail, when set, is returned by every method.
	Fail error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, rec EmergencyCallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) CountRecent(ctx context.Context, ip, toNumber string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return 0, r.Fail
	}
	n := 0
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) {
			continue
		}
		if rec.ToNumber == toNumber || (ip != "" && rec.IP != nil && *rec.IP == ip) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]EmergencyCallRecord, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return nil, 0, r.Fail
	}

	var matched []EmergencyCallRecord
	for _, rec := range r.records {
		if f.ToNumber != "" && !containsFold(rec.ToNumber, f.ToNumber) {
			continue
		}
		if f.Source != "" && (rec.Source == nil || !containsFold(*rec.Source, f.Source)) {
			continue
		}
		if f.From != nil && rec.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && rec.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return append([]EmergencyCallRecord(nil), matched[start:end]...), total, nil
}

func (r *MemoryRepo) ListSince(ctx context.Context, since, until time.Time, limit int) ([]EmergencyCallRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return nil, r.Fail
	}
	var out []EmergencyCallRecord
	for _, rec := range r.records {
		if rec.CreatedAt.Before(since) || rec.CreatedAt.After(until) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) Records() []EmergencyCallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EmergencyCallRecord, len(r.records))
	copy(out, r.records)
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
