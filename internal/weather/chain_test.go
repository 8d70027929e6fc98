package weather

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mlbright/forecast/v2"
)

type stubProvider struct {
	name  string
	f     *forecast.Forecast
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, pt Point) (*forecast.Forecast, error) {
	s.calls++
	return s.f, s.err
}

func TestChainFallsBack(t *testing.T) {
	want := &forecast.Forecast{Timezone: "Asia/Tokyo"}
	first := &stubProvider{name: "darksky", err: errors.New("boom")}
	second := &stubProvider{name: "openmeteo", f: want}
	third := &stubProvider{name: "weatherapi", err: errors.New("unused")}

	c := NewChain(first, nil, second, third)
	got, err := c.Fetch(context.Background(), Point{Lat: 35.6, Lon: 139.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected the second provider's forecast")
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 0 {
		t.Fatalf("unexpected calls %d/%d/%d", first.calls, second.calls, third.calls)
	}
	if c.Name() != "darksky>openmeteo>weatherapi" {
		t.Fatalf("unexpected name %q", c.Name())
	}
}

func TestChainJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	c := NewChain(&stubProvider{name: "a", err: errA}, &stubProvider{name: "b", err: errB})

	_, err := c.Fetch(context.Background(), Point{})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := &stubProvider{name: "b"}
	c := NewChain(&stubProvider{name: "a", err: context.Canceled}, second)

	if _, err := c.Fetch(ctx, Point{}); err == nil {
		t.Fatalf("expected error")
	}
	if second.calls != 0 {
		t.Fatalf("cancelled fetch should not fall back")
	}
}

func TestEmptyChain(t *testing.T) {
	if _, err := NewChain().Fetch(context.Background(), Point{}); err == nil || !strings.Contains(err.Error(), "no forecast providers") {
		t.Fatalf("unexpected error %v", err)
	}
}
