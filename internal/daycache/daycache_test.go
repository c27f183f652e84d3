package daycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/weekview/internal/agenda"
)

type fakeSource struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeSource) RequestAccess(context.Context) (agenda.Access, error) {
	return agenda.Access{Calendars: true, Reminders: true}, nil
}

func (f *fakeSource) FetchDay(_ context.Context, day time.Time, filter agenda.Filter) (agenda.Day, error) {
	n := f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return agenda.Day{}, f.err
	}
	result := agenda.Day{Day: day}
	if !filter.Calendars.Empty() {
		result.Events = []agenda.CalendarEvent{{ID: "e", Title: "call " + string(rune('0'+n)), Start: day.Add(9 * time.Hour)}}
	}
	return result, nil
}

func (f *fakeSource) SetCompleted(context.Context, string, string, bool) (agenda.ReminderItem, error) {
	return agenda.ReminderItem{}, nil
}

func allFilter() agenda.Filter {
	return agenda.Filter{Calendars: agenda.SelectAll(), ReminderLists: agenda.SelectAll()}
}

func TestEnsure_CachesByCalendarDay(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	cache := New(source)
	morning := time.Date(2026, 10, 19, 7, 15, 0, 0, time.UTC)
	evening := time.Date(2026, 10, 19, 22, 40, 0, 0, time.UTC)

	if _, ok := cache.Get(morning); ok {
		t.Fatal("Get must not report an unfetched day")
	}

	first, err := cache.Ensure(context.Background(), morning, allFilter(), false)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !first.Day.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day was not normalized: %v", first.Day)
	}

	second, err := cache.Ensure(context.Background(), evening, allFilter(), false)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if source.calls.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", source.calls.Load())
	}
	if second.Events[0].Title != first.Events[0].Title {
		t.Fatalf("expected cached events, got %q", second.Events[0].Title)
	}

	cached, ok := cache.Get(evening)
	if !ok || len(cached.Events) != 1 {
		t.Fatalf("Get() = %+v, %v", cached, ok)
	}
}

func TestEnsure_ForceRefetches(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	cache := New(source)
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	if _, err := cache.Ensure(context.Background(), day, allFilter(), false); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	refreshed, err := cache.Ensure(context.Background(), day, allFilter(), true)
	if err != nil {
		t.Fatalf("Ensure(force) error = %v", err)
	}
	if source.calls.Load() != 2 {
		t.Fatalf("expected two fetches, got %d", source.calls.Load())
	}
	if refreshed.Events[0].Title != "call 2" {
		t.Fatalf("expected refreshed data, got %q", refreshed.Events[0].Title)
	}
	if cached, _ := cache.Get(day); cached.Events[0].Title != "call 2" {
		t.Fatalf("forced result was not stored: %q", cached.Events[0].Title)
	}
}

func TestEnsure_ConcurrentCallsShareOneFetch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{gate: make(chan struct{}), started: make(chan struct{}, 8)}
	cache := New(source)
	day := time.Date(2026, 10, 21, 12, 0, 0, 0, time.UTC)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := cache.Ensure(context.Background(), day, allFilter(), false)
		errs <- err
	}()
	<-source.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Ensure(context.Background(), day, allFilter(), false)
			errs <- err
		}()
	}

	// Give the followers a moment to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(source.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Ensure() error = %v", err)
		}
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one shared fetch, got %d", got)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached day, got %d", cache.Len())
	}
}

func TestEnsure_FailureStoresNothing(t *testing.T) {
	t.Parallel()

	boom := errors.New("service busy")
	cache := New(&fakeSource{err: boom})
	day := time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC)

	if _, err := cache.Ensure(context.Background(), day, allFilter(), false); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if _, ok := cache.Get(day); ok {
		t.Fatal("failed fetch must leave the day absent")
	}
}

func TestInvalidateAll_DropsEntriesAndStaleResults(t *testing.T) {
	t.Parallel()

	source := &fakeSource{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	cache := New(source)
	day := time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Ensure(context.Background(), day, allFilter(), false)
		done <- err
	}()
	<-source.started

	cache.InvalidateAll()
	close(source.gate)
	if err := <-done; err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if _, ok := cache.Get(day); ok {
		t.Fatal("result fetched before InvalidateAll must not be stored")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Len())
	}

	if _, err := cache.Ensure(context.Background(), day, allFilter(), false); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached day, got %d", cache.Len())
	}
	if _, ok := cache.Get(day); !ok {
		t.Fatal("expected the refetched day to be cached")
	}
}

func TestEnsure_EmptyFilterYieldsEmptyDay(t *testing.T) {
	t.Parallel()

	cache := New(&fakeSource{})
	day := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	filter := agenda.Filter{Calendars: agenda.SelectIDs(), ReminderLists: agenda.SelectIDs()}

	result, err := cache.Ensure(context.Background(), day, filter, false)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty day, got %+v", result)
	}
}
