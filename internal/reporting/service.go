package reporting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"healthline-api/internal/audit"
	"healthline-api/pkg/logger"
)

var (
	ErrInvalidRequest = errors.New("reporting: invalid request")
	ErrNotConfigured  = errors.New("reporting: call log store not configured")
)

const unknownSource = "Unknown"

// Service backs the admin emergency-call views.
//
// IMPORTANT:
// - Admin-only. Routes must be gated by rbac.RequireAdmin.
// - Reads go against the append-only emergency_calls store.
type Service struct {
	repo  audit.Repository
	cache Cache
	clock func() time.Time
}

func NewService(repo audit.Repository, cache Cache) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{repo: repo, cache: cache, clock: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) List(ctx context.Context, req ListRequest) (ListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	if req.Page < 1 || !slices.Contains(AllowedPageSizes, req.PageSize) {
		return ListResponse{}, ErrInvalidRequest
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return ListResponse{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ListResponse{}, ErrNotConfigured
	}

	rows, total, err := s.repo.List(ctx, audit.ListFilter{
		ToNumber: req.ToNumber,
		Source:   req.Source,
		From:     req.From,
		To:       req.To,
		Limit:    req.PageSize,
		Offset:   (req.Page - 1) * req.PageSize,
	})
	if err != nil {
		return ListResponse{}, err
	}
	if rows == nil {
		rows = []audit.EmergencyCallRecord{}
	}

	pages := (total + req.PageSize - 1) / req.PageSize
	if pages < 1 {
		pages = 1
	}
	return ListResponse{Rows: rows, Total: total, Page: req.Page, PageSize: req.PageSize, TotalPages: pages}, nil
}

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return Summary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Summary{}, ErrNotConfigured
	}

	log := logger.From(ctx)
	key := summaryKey(req)
	if cached, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Warn("summary cache read failed", "err", err)
	} else if ok {
		return cached, nil
	}

	now := s.clock().UTC()
	since := now.Add(-SummaryDefaultLookback)
	if req.From != nil {
		since = *req.From
	}
	until := now
	if req.To != nil {
		until = *req.To
	}

	rows, err := s.repo.ListSince(ctx, since, until.Add(24*time.Hour), SummaryRowLimit)
	if err != nil {
		return Summary{}, err
	}
	out := summarize(rows, now)

	if err := s.cache.Set(ctx, key, out, SummaryCacheTTL); err != nil {
		log.Warn("summary cache write failed", "err", err)
	}
	return out, nil
}

func summaryKey(req SummaryRequest) string {
	f := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("reporting:emergency_summary:%s:%s", f(req.From), f(req.To))
}

// summarize aggregates rows sorted by created_at ascending.
func summarize(rows []audit.EmergencyCallRecord, now time.Time) Summary {
	todayKey := dayKey(now)
	last7 := now.Add(-7 * 24 * time.Hour)

	byDay := map[string]int{}
	bySource := map[string]int{}
	numbers := map[string]struct{}{}
	out := Summary{Total: len(rows), GeneratedAt: now}

	for _, r := range rows {
		day := dayKey(r.CreatedAt)
		byDay[day]++

		src := unknownSource
		if r.Source != nil && *r.Source != "" {
			src = *r.Source
		}
		bySource[src]++

		if r.HasCoords() {
			out.WithCoords++
		}
		if r.ToNumber != "" {
			numbers[r.ToNumber] = struct{}{}
		}
		if day == todayKey {
			out.CallsToday++
		}
		if !r.CreatedAt.Before(last7) {
			out.CallsLast7++
		}
	}
	out.UniqueNumbers = len(numbers)

	start := now.Add(-SummaryDefaultLookback)
	if len(rows) > 0 {
		start = rows[0].CreatedAt
	}
	out.Days = []DayCount{}
	for cursor := truncateDay(start); !cursor.After(now); cursor = cursor.AddDate(0, 0, 1) {
		key := dayKey(cursor)
		out.Days = append(out.Days, DayCount{Date: key, Count: byDay[key]})
	}

	out.Sources = make([]SourceCount, 0, len(bySource))
	for name, n := range bySource {
		out.Sources = append(out.Sources, SourceCount{Name: name, Count: n})
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		if out.Sources[i].Count != out.Sources[j].Count {
			return out.Sources[i].Count > out.Sources[j].Count
		}
		return out.Sources[i].Name < out.Sources[j].Name
	})
	return out
}

func dayKey(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
