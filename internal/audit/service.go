package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Repository reads the access log, most recent entry first.
type Repository interface {
	ListEntries(ctx context.Context, limit int) ([]Entry, error)
}

// ActorDirectory lists the users the log may reference.
type ActorDirectory interface {
	ListActors(ctx context.Context) ([]Actor, error)
}

// Service answers access-log queries. Filtering happens after the
// actor join because the free-text criterion matches resolved names,
// and it never re-sorts: entries keep the log's descending order.
type Service struct {
	repo   Repository
	actors ActorDirectory
	loc    *time.Location
	now    func() time.Time
}

// NewService builds a Service. loc fixes the calendar used by the
// today/week/month windows; nil means UTC.
func NewService(repo Repository, actors ActorDirectory, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, actors: actors, loc: loc, now: time.Now}
}

// List returns the filtered log with actors resolved to their current
// display identity. Entries and the actor directory are fetched
// concurrently.
func (s *Service) List(ctx context.Context, filters Filters) ([]ResolvedEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}

	var (
		entries []Entry
		actors  []Actor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListEntries(gctx, 0)
		return err
	})
	g.Go(func() error {
		if s.actors == nil {
			return nil
		}
		var err error
		actors, err = s.actors.ListActors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]Actor, len(actors))
	for _, a := range actors {
		byID[a.ID] = a
	}

	now := s.now().In(s.loc)
	result := make([]ResolvedEntry, 0, len(entries))
	for _, e := range entries {
		resolved := ResolvedEntry{Entry: e}
		if a, ok := byID[e.ActorID]; ok {
			resolved.ActorName = a.Name
			resolved.ActorEmail = a.Email
		}
		if s.matches(resolved, filters, now) {
			result = append(result, resolved)
		}
	}
	return result, nil
}

func (s *Service) matches(e ResolvedEntry, f Filters, now time.Time) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if !s.inRange(e.CreatedAt, f.Range, now) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(e.ActorName), q) &&
			!strings.Contains(strings.ToLower(e.ActorEmail), q) &&
			!strings.Contains(strings.ToLower(e.Details), q) {
			return false
		}
	}
	return true
}

// inRange evaluates the calendar window against the configured zone.
// Weeks start on Sunday.
func (s *Service) inRange(at time.Time, r DateRange, now time.Time) bool {
	local := at.In(s.loc)
	switch r {
	case RangeToday:
		return sameDay(local, now)
	case RangeWeek:
		return !local.Before(startOfWeek(now))
	case RangeMonth:
		return local.Year() == now.Year() && local.Month() == now.Month()
	}
	return true
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func startOfWeek(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}
