package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type countingLocator struct {
	calls atomic.Int32
	err   error
}

func (c *countingLocator) Locate(context.Context) (Coordinates, error) {
	c.calls.Add(1)
	if c.err != nil {
		return Coordinates{}, c.err
	}
	return Coordinates{Latitude: 52.52, Longitude: 13.405}, nil
}

func TestCurrent_FetchesOpenMeteo(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("latitude") != "52.5200" || query.Get("current") != "temperature_2m,weather_code" {
			http.Error(w, "unexpected query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"time":"2026-10-19T12:00","temperature_2m":12.6,"weather_code":61}}`))
	}))
	defer server.Close()

	locator := &countingLocator{}
	service := NewService(locator, server.URL+"/v1/forecast", time.Second)

	for i := 0; i < 2; i++ {
		report, err := service.Current(context.Background())
		if err != nil {
			t.Fatalf("Current() error = %v", err)
		}
		if report.Condition != "Rain" || report.Temperature() != "13°C" {
			t.Fatalf("unexpected report: %+v", report)
		}
	}
	if locator.calls.Load() != 1 {
		t.Fatalf("location should be resolved once, got %d", locator.calls.Load())
	}
}

func TestCurrent_ErrorsMapToStatusText(t *testing.T) {
	t.Parallel()

	noFix := NewService(&countingLocator{err: errors.New("no wifi")}, "http://127.0.0.1:1", time.Second)
	_, err := noFix.Current(context.Background())
	if !errors.Is(err, ErrLocationUnavailable) || StatusText(err) != "Location unavailable" {
		t.Fatalf("unexpected location error: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	down := NewService(Static{Latitude: 1, Longitude: 2}, server.URL, time.Second)
	_, err = down.Current(context.Background())
	if err == nil || StatusText(err) != "Unable to load weather" {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if StatusText(nil) != "" {
		t.Fatal("no error should yield no status")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code      int
		condition string
	}{
		{0, "Clear"},
		{3, "Overcast"},
		{48, "Fog"},
		{75, "Snow"},
		{82, "Rain showers"},
		{99, "Thunderstorm with hail"},
		{42, "Unknown"},
	}
	for _, tc := range tests {
		if got, _ := Describe(tc.code); got != tc.condition {
			t.Fatalf("Describe(%d) = %q, want %q", tc.code, got, tc.condition)
		}
	}
}

func TestReportTemperature_NoNegativeZero(t *testing.T) {
	t.Parallel()

	if got := (Report{TemperatureC: -0.3}).Temperature(); got != "0°C" {
		t.Fatalf("Temperature() = %q", got)
	}
}
