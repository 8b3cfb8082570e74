package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries []Entry
}

func (s *stubRepo) ListEntries(ctx context.Context, limit int) ([]Entry, error) {
	return s.entries, nil
}

type stubDirectory struct {
	actors []Actor
}

func (s *stubDirectory) ListActors(ctx context.Context) ([]Actor, error) {
	return s.actors, nil
}

// fixedNow is a Wednesday; the Sunday-start week containing it begins
// 2024-06-09.
var fixedNow = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)

func entryAt(id string, actorID string, details string, at time.Time) Entry {
	return Entry{
		ID:         id,
		ActorID:    actorID,
		Action:     ActionUpdate,
		TargetType: TargetRole,
		TargetID:   "role-1",
		Details:    details,
		CreatedAt:  at,
	}
}

func newTestService(entries []Entry, actors []Actor) *Service {
	svc := NewService(&stubRepo{entries: entries}, &stubDirectory{actors: actors}, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func sampleEntries() []Entry {
	// Descending creation order, the order the repository returns.
	return []Entry{
		entryAt("e1", "u1", "Updated role nurse", time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)),
		entryAt("e2", "u2", "Created role cashier", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)),
		entryAt("e3", "u1", "Deleted role intern", time.Date(2024, 6, 7, 8, 0, 0, 0, time.UTC)),
		entryAt("e4", "u2", "Assigned role nurse to user Bintou", time.Date(2024, 5, 20, 8, 0, 0, 0, time.UTC)),
	}
}

func sampleActors() []Actor {
	return []Actor{
		{ID: "u1", Name: "Alice Diop", Email: "alice@clinic.test"},
		{ID: "u2", Name: "Bruno Faye", Email: "bruno@clinic.test"},
	}
}

func ids(entries []ResolvedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestListPreservesDescendingOrder(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{Range: RangeAll})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, ids(result))
}

func TestListResolvesActors(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, "Alice Diop", result[0].ActorName)
	assert.Equal(t, "bruno@clinic.test", result[1].ActorEmail)
}

func TestListUnknownActorKeepsEntry(t *testing.T) {
	svc := newTestService(sampleEntries(), nil)

	result, err := svc.List(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, result, 4)
	assert.Empty(t, result[0].ActorName, "historical fact survives a deleted actor")
}

func TestListFiltersToday(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{Range: RangeToday})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(result))
}

func TestListFiltersWeekStartsSunday(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{Range: RangeWeek})
	require.NoError(t, err)
	// e3 (Friday before the Sunday week start) falls out.
	assert.Equal(t, []string{"e1", "e2"}, ids(result))
}

func TestListFiltersMonth(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{Range: RangeMonth})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids(result))
}

func TestListMonthExcludesEverythingAMonthLater(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())
	svc.now = func() time.Time { return fixedNow.AddDate(0, 1, 0) }

	result, err := svc.List(context.Background(), Filters{Range: RangeMonth})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestListFiltersByActorID(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{ActorID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e4"}, ids(result))
}

func TestListSearchMatchesActorAndDetails(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	byName, err := svc.List(context.Background(), Filters{Search: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e3"}, ids(byName))

	byEmail, err := svc.List(context.Background(), Filters{Search: "BRUNO@"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e4"}, ids(byEmail))

	byDetails, err := svc.List(context.Background(), Filters{Search: "cashier"})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2"}, ids(byDetails))

	none, err := svc.List(context.Background(), Filters{Search: "radiology"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListConjunctionOfFilters(t *testing.T) {
	svc := newTestService(sampleEntries(), sampleActors())

	result, err := svc.List(context.Background(), Filters{
		Search:  "role",
		ActorID: "u1",
		Range:   RangeWeek,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, ids(result))
}

func TestParseDateRange(t *testing.T) {
	r, ok := ParseDateRange("")
	assert.True(t, ok)
	assert.Equal(t, RangeAll, r)

	r, ok = ParseDateRange("week")
	assert.True(t, ok)
	assert.Equal(t, RangeWeek, r)

	_, ok = ParseDateRange("fortnight")
	assert.False(t, ok)
}
