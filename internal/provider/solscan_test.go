package provider

import (
	"context"
	"math"
	"net/http"
	"testing"
)

func TestSolscanTokenHolders(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "ss-key", func(req *http.Request) *http.Response {
		if req.Header.Get("token") != "ss-key" {
			t.Fatal("missing token header")
		}
		q := req.URL.Query()
		if q.Get("page") != "2" || q.Get("page_size") != "40" {
			t.Fatalf("unexpected paging: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"total": 1234,
			"items": []map[string]any{
				{"owner": "w1", "amount": 5_000_000, "decimals": 6, "rank": 41, "value": 12.5},
				{"owner": "w2", "amount": "1000000", "decimals": 6},
			},
		}})
	})
	p := NewSolscanProvider(testTracer, opts)

	holders, total, err := p.TokenHolders(context.Background(), bonkMint, 2, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1234 || len(holders) != 2 {
		t.Fatalf("unexpected result: total=%d holders=%d", total, len(holders))
	}
	if holders[0].Balance != 5 || holders[0].Rank != 41 || holders[0].USDValue != 12.5 {
		t.Fatalf("unexpected first holder: %+v", holders[0])
	}
	if holders[1].Rank != 42 || holders[1].Balance != 1 {
		t.Fatalf("missing rank should derive from page position: %+v", holders[1])
	}
}

func TestSolscanTokenMeta(t *testing.T) {
	t.Parallel()

	opts, _ := testOptions(t, "ss-key", func(req *http.Request) *http.Response {
		return jsonResponse(http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"name": "Bonk", "symbol": "Bonk", "decimals": 5, "supply": "8800000000000000000", "holder": 900000,
		}})
	})
	p := NewSolscanProvider(testTracer, opts)

	meta, err := p.TokenMeta(context.Background(), bonkMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(meta.Supply-8.8e13) > 1 || meta.Holders != 900000 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
