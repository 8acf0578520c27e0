package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"solfolio/internal/domain"
)

func TestDoRequestReturnsAPIError(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "", func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusTooManyRequests, `{"error":"slow down"}`)
	})
	p := NewJupiterProvider(testTracer, opts)

	_, err := p.SearchTokens(context.Background(), "bonk")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests || apiErr.Provider != "jupiter" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "slow down") {
		t.Fatalf("body missing from error: %s", apiErr.Error())
	}
}

func TestAPIErrorTruncatesBody(t *testing.T) {
	err := &APIError{Provider: "x", StatusCode: 500, Body: strings.Repeat("a", 1000)}
	if len(err.Error()) > 300 {
		t.Fatalf("error message not truncated: %d chars", len(err.Error()))
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		empty bool
		want  domain.SourceState
	}{
		{"ok", nil, false, domain.SourceOK},
		{"empty", nil, true, domain.SourceEmpty},
		{"lookalike text is not the sentinel", errors.New("wrapped: " + ErrMissingAPIKey.Error()), false, domain.SourceError},
		{"wrapped missing key", errorsJoin(ErrMissingAPIKey), false, domain.SourceMissingKey},
		{"error wins over empty", errors.New("boom"), true, domain.SourceError},
	}
	for _, tc := range cases {
		got := Status("p", "op", tc.err, tc.empty)
		if got.State != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got.State)
		}
		if got.Provider != "p" || got.Op != "op" {
			t.Fatalf("%s: provider/op not recorded: %+v", tc.name, got)
		}
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}

func TestFlexFloat(t *testing.T) {
	var v struct {
		A flexFloat `json:"a"`
		B flexFloat `json:"b"`
		C flexFloat `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"1.5","b":2,"c":null}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.A != 1.5 || v.B != 2 || v.C != 0 {
		t.Fatalf("unexpected values: %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":"abc"}`), &v); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestUIAmount(t *testing.T) {
	if got := uiAmount(1_500_000, 6); got != 1.5 {
		t.Fatalf("expected 1.5, got %v", got)
	}
	if got := uiAmount(42, 0); got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestKeyRequired(t *testing.T) {
	opts := Options{}
	if NewJupiterProvider(testTracer, opts).KeyRequired() {
		t.Fatal("jupiter works keyless")
	}
	if NewCoinGeckoProvider(testTracer, opts).KeyRequired() {
		t.Fatal("coingecko works keyless")
	}
	if !NewBirdeyeProvider(testTracer, opts).KeyRequired() {
		t.Fatal("birdeye needs a key")
	}
}
