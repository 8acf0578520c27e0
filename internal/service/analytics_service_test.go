package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/provider"
)

func newAnalytics(tr *mockTrades, sol *mockSolscan, bird *mockOverview, store *mockActivityStore) *AnalyticsService {
	if tr == nil {
		tr = &mockTrades{}
	}
	var holders HolderSource
	if sol != nil {
		holders = sol
	}
	var fallback HolderFallback
	if bird != nil {
		fallback = bird
	}
	var st ActivityStore
	if store != nil {
		st = store
	}
	svc := NewAnalyticsService(testTracer, nil, tr, holders, fallback, st, time.Minute, 0)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestAnalyticsService_TradeSummary(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{trades: []domain.TradeRecord{
		trade(walletA, domain.DirectionBuy, 100, fixedNow.Add(-time.Hour)),
		trade(walletB, domain.DirectionSell, 50, fixedNow.Add(-2*time.Hour)),
	}}
	store := &mockActivityStore{}
	svc := newAnalytics(tr, nil, nil, store)

	res, err := svc.TradeSummary(context.Background(), domain.SOLMint, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Window != "24h" {
		t.Fatalf("window = %q, want default 24h", res.Window)
	}
	s := res.Summary
	if s.TotalBuyVolume != 100 || s.TotalSellVolume != 50 {
		t.Fatalf("unexpected volumes: %+v", s)
	}
	if math.Abs(s.NetFlowPercent-33.33) > 0.01 {
		t.Fatalf("net flow percent = %v, want 33.33", s.NetFlowPercent)
	}
	if res.Direction != domain.FlowInflow {
		t.Fatalf("direction = %q", res.Direction)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("expected fetched trades to be persisted, got %d", len(store.upserted))
	}

	_, _ = svc.HolderMovement(context.Background(), domain.SOLMint, "24h")
	if tr.calls.Load() != 1 {
		t.Fatalf("expected trades to be cached across analytics, got %d calls", tr.calls.Load())
	}
}

func TestAnalyticsService_TradesFallBackToStore(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{err: provider.ErrMissingAPIKey}
	store := &mockActivityStore{stored: []domain.TradeRecord{
		trade(walletA, domain.DirectionSell, 40, fixedNow.Add(-time.Minute)),
	}}
	svc := newAnalytics(tr, nil, nil, store)

	res, err := svc.TradeSummary(context.Background(), domain.SOLMint, "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.TotalSellVolume != 40 || res.Trades != 1 {
		t.Fatalf("expected stored trades, got %+v", res)
	}
	if res.Sources.State("bitquery", "dex_trades") != domain.SourceMissingKey {
		t.Fatalf("expected missing_key, got %+v", res.Sources)
	}
	if res.Sources.State("postgres", "token_transactions") != domain.SourceOK {
		t.Fatalf("expected store status ok, got %+v", res.Sources)
	}
	if len(store.upserted) != 0 {
		t.Fatal("stored trades must not be written back")
	}
}

func TestAnalyticsService_ProviderErrorGivesEmptyData(t *testing.T) {
	t.Parallel()

	svc := newAnalytics(&mockTrades{err: errors.New("502")}, nil, nil, nil)

	res, err := svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Summary.TotalVolume() != 0 || res.Summary.NetFlowPercent != 0 {
		t.Fatalf("expected empty summary, got %+v", res.Summary)
	}
	if res.Sources.State("bitquery", "dex_trades") != domain.SourceError {
		t.Fatalf("expected error status, got %+v", res.Sources)
	}
}

func TestAnalyticsService_InvalidArguments(t *testing.T) {
	t.Parallel()

	svc := newAnalytics(nil, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.TradeSummary(ctx, "nope", "24h"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for mint, got %v", err)
	}
	if _, err := svc.HolderMovement(ctx, domain.SOLMint, "2y"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for window, got %v", err)
	}
	if _, err := svc.TokenFlows(ctx, domain.SOLMint, "24h", "3m"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bucket, got %v", err)
	}
}

func TestAnalyticsService_TokenFlowsPersistsAnalysis(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{trades: []domain.TradeRecord{
		trade(walletA, domain.DirectionBuy, 300, fixedNow.Add(-30*time.Minute)),
		trade(walletB, domain.DirectionSell, 100, fixedNow.Add(-90*time.Minute)),
		trade(walletB, domain.DirectionSell, 999, fixedNow.Add(-48*time.Hour)),
	}}
	store := &mockActivityStore{}
	svc := newAnalytics(tr, nil, nil, store)

	flows, err := svc.TokenFlows(context.Background(), domain.SOLMint, "24h", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flows.Series) != 2 {
		t.Fatalf("series = %d buckets, want 2", len(flows.Series))
	}
	if !flows.Series[0].Start.Before(flows.Series[1].Start) {
		t.Fatal("series must be ascending")
	}
	if flows.Summary.TotalSellVolume != 100 {
		t.Fatalf("trade outside window counted: %+v", flows.Summary)
	}
	if len(store.analyses) != 1 || store.analyses[0].Window != "24h" || store.analyses[0].NetFlow != 200 {
		t.Fatalf("unexpected persisted analysis: %+v", store.analyses)
	}
}

func TestAnalyticsService_Whales(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{trades: []domain.TradeRecord{
		trade(walletA, domain.DirectionBuy, 25_000, fixedNow.Add(-time.Hour)),
		trade(walletA, domain.DirectionBuy, 15_000, fixedNow.Add(-2*time.Hour)),
		trade(walletB, domain.DirectionSell, 12_000, fixedNow.Add(-3*time.Hour)),
		trade(usdc, domain.DirectionBuy, 500, fixedNow.Add(-time.Hour)),
	}}
	svc := newAnalytics(tr, nil, nil, nil)

	report, err := svc.Whales(context.Background(), domain.SOLMint, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ThresholdUSD != DefaultWhaleThreshold {
		t.Fatalf("threshold = %v", report.ThresholdUSD)
	}
	if len(report.Whales) != 2 || report.Whales[0].WalletAddress != walletA {
		t.Fatalf("unexpected whales: %+v", report.Whales)
	}
	if report.Whales[0].Behavior != domain.BehaviorAccumulating || report.Whales[1].Behavior != domain.BehaviorDistributing {
		t.Fatalf("unexpected behaviors: %+v", report.Whales)
	}
}

func TestAnalyticsService_HolderDistributionFromSolscan(t *testing.T) {
	t.Parallel()

	sol := &mockSolscan{
		pages: map[int][]domain.TokenHolder{
			1: {
				{TokenMint: domain.SOLMint, OwnerAddress: walletA, Balance: 50, Rank: 1},
				{TokenMint: domain.SOLMint, OwnerAddress: walletB, Balance: 0.5, Rank: 2},
			},
		},
		meta: &provider.TokenMeta{Mint: domain.SOLMint, Supply: 1000},
	}
	bird := &mockOverview{}
	store := &mockActivityStore{}
	svc := newAnalytics(nil, sol, bird, store)

	dist, err := svc.HolderDistribution(context.Background(), domain.SOLMint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.TotalSupply != 1000 || dist.SampledHolders != 2 {
		t.Fatalf("unexpected distribution: %+v", dist)
	}
	if dist.Top10Concentration != 5.05 {
		t.Fatalf("top10 = %v, want 5.05", dist.Top10Concentration)
	}
	if dist.Buckets[0].Tier != domain.TierWhale || dist.Buckets[0].Holders != 1 {
		t.Fatalf("unexpected whale bucket: %+v", dist.Buckets[0])
	}
	if bird.calls.Load() != 0 {
		t.Fatal("birdeye must not be called when solscan answers")
	}
	if len(store.upHolders) != 2 {
		t.Fatalf("expected holders persisted, got %d", len(store.upHolders))
	}

	_, _ = svc.HolderDistribution(context.Background(), domain.SOLMint)
	if sol.calls.Load() != holderPages {
		t.Fatalf("expected cached distribution, got %d solscan calls", sol.calls.Load())
	}
}

func TestAnalyticsService_HolderDistributionFallsBackToBirdeye(t *testing.T) {
	t.Parallel()

	sol := &mockSolscan{err: provider.ErrMissingAPIKey}
	bird := &mockOverview{
		holders: []domain.TokenHolder{{TokenMint: usdc, OwnerAddress: walletA, Balance: 20, Rank: 1}},
		stats:   &domain.TokenStats{TotalSupply: domain.Float(100)},
	}
	svc := newAnalytics(nil, sol, bird, nil)

	dist, err := svc.HolderDistribution(context.Background(), usdc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.TotalSupply != 100 || dist.Top10Concentration != 20 {
		t.Fatalf("unexpected distribution: %+v", dist)
	}
	if dist.Sources.State("solscan", "token_meta") != domain.SourceMissingKey {
		t.Fatalf("expected solscan missing_key, got %+v", dist.Sources)
	}
	if dist.Sources.State("birdeye", "top_holders") != domain.SourceOK {
		t.Fatalf("expected birdeye ok, got %+v", dist.Sources)
	}
}

func TestAnalyticsService_HolderDistributionSupplyFromBirdeye(t *testing.T) {
	t.Parallel()

	sol := &mockSolscan{pages: map[int][]domain.TokenHolder{
		1: {{TokenMint: usdc, OwnerAddress: walletA, Balance: 500, Rank: 1}},
	}}
	bird := &mockOverview{stats: &domain.TokenStats{TotalSupply: domain.Float(1000)}}
	svc := newAnalytics(nil, sol, bird, nil)

	dist, err := svc.HolderDistribution(context.Background(), usdc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.TotalSupply != 1000 || dist.Top10Concentration != 50 {
		t.Fatalf("unexpected distribution: %+v", dist)
	}
	if dist.Buckets[0].Tier != domain.TierWhale || dist.Buckets[0].Holders != 1 {
		t.Fatalf("expected the holder in the whale tier, got %+v", dist.Buckets)
	}
	if bird.calls.Load() != 1 {
		t.Fatalf("expected one birdeye overview call, got %d", bird.calls.Load())
	}
	if dist.Sources.State("birdeye", "token_overview") != domain.SourceOK {
		t.Fatalf("expected birdeye overview ok, got %+v", dist.Sources)
	}
}

func TestAnalyticsService_HolderDistributionWithoutSupplyIsNotCached(t *testing.T) {
	t.Parallel()

	sol := &mockSolscan{pages: map[int][]domain.TokenHolder{
		1: {{TokenMint: usdc, OwnerAddress: walletA, Balance: 500, Rank: 1}},
	}}
	bird := &mockOverview{err: errors.New("down")}
	svc := newAnalytics(nil, sol, bird, nil)

	dist, err := svc.HolderDistribution(context.Background(), usdc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.TotalSupply != 0 || dist.SampledHolders != 1 {
		t.Fatalf("unexpected distribution: %+v", dist)
	}

	_, _ = svc.HolderDistribution(context.Background(), usdc)
	if sol.calls.Load() != 2*holderPages {
		t.Fatalf("zero-supply distribution must not be cached, got %d solscan calls", sol.calls.Load())
	}
}

func TestAnalyticsService_HolderDistributionFromStore(t *testing.T) {
	t.Parallel()

	store := &mockActivityStore{holders: []domain.TokenHolder{{TokenMint: usdc, OwnerAddress: walletA, Balance: 5}}}
	svc := newAnalytics(nil, &mockSolscan{err: errors.New("down")}, &mockOverview{hErr: errors.New("down")}, store)

	dist, err := svc.HolderDistribution(context.Background(), usdc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.SampledHolders != 1 {
		t.Fatalf("expected stored holder, got %+v", dist)
	}
	if len(store.upHolders) != 0 {
		t.Fatal("stored holders must not be written back")
	}
}

func TestAnalyticsService_ClearCaches(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{trades: []domain.TradeRecord{trade(walletA, domain.DirectionBuy, 1, fixedNow)}}
	svc := newAnalytics(tr, nil, nil, nil)
	_, _ = svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	_, _ = svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	svc.ClearCaches()
	_, _ = svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	if tr.calls.Load() != 2 {
		t.Fatalf("expected 2 fetches, got %d", tr.calls.Load())
	}
}

func TestAnalyticsService_TruncatedTradesReportCoverage(t *testing.T) {
	t.Parallel()

	trades := make([]domain.TradeRecord, 0, tradeFetchLimit)
	for i := 0; i < tradeFetchLimit; i++ {
		trades = append(trades, trade(walletA, domain.DirectionBuy, 1, fixedNow.Add(-time.Duration(i)*time.Second)))
	}
	earliest := fixedNow.Add(-time.Duration(tradeFetchLimit-1) * time.Second)
	svc := newAnalytics(&mockTrades{trades: trades}, nil, nil, nil)

	res, err := svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Coverage.Truncated || res.Coverage.CoveredFrom == nil {
		t.Fatalf("expected truncated coverage, got %+v", res.Coverage)
	}
	if !res.Coverage.CoveredFrom.Equal(earliest) {
		t.Fatalf("covered from = %v, want %v", res.Coverage.CoveredFrom, earliest)
	}

	flows, err := svc.TokenFlows(context.Background(), domain.SOLMint, "24h", "1h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flows.Coverage.Truncated {
		t.Fatal("expected flows to carry the truncation marker")
	}
}

func TestAnalyticsService_CompleteTradesAreNotTruncated(t *testing.T) {
	t.Parallel()

	tr := &mockTrades{trades: []domain.TradeRecord{trade(walletA, domain.DirectionBuy, 1, fixedNow)}}
	svc := newAnalytics(tr, nil, nil, nil)

	res, err := svc.TradeSummary(context.Background(), domain.SOLMint, "24h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Coverage.Truncated || res.Coverage.CoveredFrom != nil {
		t.Fatalf("unexpected coverage: %+v", res.Coverage)
	}
}
