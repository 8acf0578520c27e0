package service

import (
	"testing"
	"time"

	"solfolio/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

func TestKeyStatus(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	got := KeyStatus(
		provider.NewBirdeyeProvider(tracer, provider.Options{}),
		provider.NewHeliusProvider(tracer, provider.Options{APIKey: "k"}),
		provider.NewJupiterProvider(tracer, provider.Options{}),
		nil,
	)

	want := map[string]string{
		"birdeye": KeyMissing,
		"helius":  KeyConfigured,
		"jupiter": KeyOptional,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d statuses, want %d: %+v", len(got), len(want), got)
	}
	for i, s := range got {
		if want[s.Provider] != s.Status {
			t.Errorf("%s = %q, want %q", s.Provider, s.Status, want[s.Provider])
		}
		if i > 0 && got[i-1].Provider > s.Provider {
			t.Errorf("statuses not sorted: %+v", got)
		}
	}
}

func TestClearCaches(t *testing.T) {
	t.Parallel()

	social := NewSocialService(testTracer, nil, &stubLunar{}, &stubSantiment{}, time.Minute)
	analytics := newAnalytics(nil, nil, nil, nil)
	if n := ClearCaches(social, analytics, nil); n != 2 {
		t.Fatalf("cleared %d caches, want 2", n)
	}
}
