package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestSantimentSocialVolume(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "san-key", func(req *http.Request) *http.Response {
		if req.Header.Get("Authorization") != "Apikey san-key" {
			t.Fatalf("unexpected auth header: %s", req.Header.Get("Authorization"))
		}
		vars := readBody(t, req)["variables"].(map[string]any)
		if vars["slug"] != "solana" {
			t.Fatalf("unexpected slug: %v", vars["slug"])
		}
		return jsonResponse(http.StatusOK, map[string]any{"data": map[string]any{"getMetric": map[string]any{
			"timeseriesData": []map[string]any{
				{"datetime": "2025-01-01T00:00:00Z", "value": 120},
				{"datetime": "bad", "value": 1},
				{"datetime": "2025-01-02T00:00:00Z", "value": 140.5},
			},
		}}})
	})
	p := NewSantimentProvider(testTracer, opts)

	points, err := p.SocialVolume(context.Background(), "solana", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 || points[1].Value != 140.5 {
		t.Fatalf("unexpected points: %+v", points)
	}
}

func TestSantimentMissingKey(t *testing.T) {
	t.Parallel()

	opts, calls := testOptions(t, "", func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, "{}")
	})
	p := NewSantimentProvider(testTracer, opts)

	if _, err := p.SocialVolume(context.Background(), "solana", 7); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if *calls != 0 {
		t.Fatalf("expected no calls, got %d", *calls)
	}
}

func TestLunarCrushCoinSocial(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "lc-key", func(req *http.Request) *http.Response {
		if req.URL.Path != "/coins/sol/v1" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "Bearer lc-key" {
			t.Fatal("missing bearer token")
		}
		return jsonResponse(http.StatusOK, map[string]any{"data": map[string]any{
			"galaxy_score": 71, "alt_rank": 12, "sentiment": 82, "interactions_24h": 1.5e6,
		}})
	})
	p := NewLunarCrushProvider(testTracer, opts)

	social, err := p.CoinSocial(context.Background(), "SOL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if social.Symbol != "SOL" || *social.GalaxyScore != 71 || *social.AltRank != 12 {
		t.Fatalf("unexpected social: %+v", social)
	}
	if social.SocialDominance != nil {
		t.Fatal("absent dominance should be nil")
	}
}

func TestLunarCrushNoData(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "lc-key", func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, map[string]any{})
	})
	p := NewLunarCrushProvider(testTracer, opts)

	social, err := p.CoinSocial(context.Background(), "NOPE")
	if err != nil || social != nil {
		t.Fatalf("expected nil result, got %+v %v", social, err)
	}
}
