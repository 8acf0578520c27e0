package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/provider"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

// Valid 32 byte base58 addresses.
const (
	walletA = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	walletB = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	usdc    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	unknownMint = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		bytes, _ := json.Marshal(v)
		f.data[key] = bytes
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

type mockJupiter struct {
	tokens     []domain.TokenInfo
	stats      *domain.TokenStats
	statsErr   error
	prices     map[string]float64
	pricesErr  error
	orders     []domain.TriggerOrder
	searchErr  error
	searchCall atomic.Int32
	statsCall  atomic.Int32
}

func (m *mockJupiter) SearchTokens(ctx context.Context, query string) ([]domain.TokenInfo, error) {
	m.searchCall.Add(1)
	return m.tokens, m.searchErr
}

func (m *mockJupiter) TokenStats(ctx context.Context, mint string) (*domain.TokenStats, error) {
	m.statsCall.Add(1)
	return m.stats, m.statsErr
}

func (m *mockJupiter) GetPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	return m.prices, m.pricesErr
}

func (m *mockJupiter) GetTriggerOrders(ctx context.Context, wallet string) ([]domain.TriggerOrder, error) {
	return m.orders, nil
}

type mockOverview struct {
	stats   *domain.TokenStats
	err     error
	holders []domain.TokenHolder
	hErr    error
	calls   atomic.Int32
}

func (m *mockOverview) TokenOverview(ctx context.Context, mint string) (*domain.TokenStats, error) {
	m.calls.Add(1)
	return m.stats, m.err
}

func (m *mockOverview) TopHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error) {
	return m.holders, m.hErr
}

type mockCoinGecko struct {
	prices      map[string]*domain.PriceSnapshot
	err         error
	tokenPrices map[string]float64
	chart       []domain.PricePoint
	fetchCalls  atomic.Int32
	chartCalls  atomic.Int32
	tokenCalls  atomic.Int32
}

func (m *mockCoinGecko) FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error) {
	m.fetchCalls.Add(1)
	return m.prices, m.err
}

func (m *mockCoinGecko) FetchTokenPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	m.tokenCalls.Add(1)
	out := make(map[string]float64)
	for _, mint := range mints {
		if p, ok := m.tokenPrices[mint]; ok {
			out[mint] = p
		}
	}
	return out, nil
}

func (m *mockCoinGecko) FetchMarketChart(ctx context.Context, symbol string, days int) ([]domain.PricePoint, error) {
	m.chartCalls.Add(1)
	return m.chart, nil
}

type mockTrades struct {
	trades []domain.TradeRecord
	err    error
	calls  atomic.Int32
}

func (m *mockTrades) GetDEXTrades(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error) {
	m.calls.Add(1)
	return m.trades, m.err
}

type mockSolscan struct {
	pages map[int][]domain.TokenHolder
	meta  *provider.TokenMeta
	err   error
	calls atomic.Int32
}

func (m *mockSolscan) TokenHolders(ctx context.Context, mint string, page, size int) ([]domain.TokenHolder, int, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.pages[page], 0, nil
}

func (m *mockSolscan) TokenMeta(ctx context.Context, mint string) (*provider.TokenMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.meta, nil
}

type mockActivityStore struct {
	mu        sync.Mutex
	stored    []domain.TradeRecord
	holders   []domain.TokenHolder
	upserted  []domain.TradeRecord
	upHolders []domain.TokenHolder
	analyses  []domain.TokenFlowAnalysis
	listCalls int
}

func (m *mockActivityStore) UpsertHolders(ctx context.Context, holders []domain.TokenHolder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upHolders = append(m.upHolders, holders...)
	return nil
}

func (m *mockActivityStore) ListHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error) {
	return m.holders, nil
}

func (m *mockActivityStore) UpsertTransactions(ctx context.Context, trades []domain.TradeRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, trades...)
	return len(trades), nil
}

func (m *mockActivityStore) ListTransactions(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.stored, nil
}

func (m *mockActivityStore) InsertFlowAnalysis(ctx context.Context, a domain.TokenFlowAnalysis) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, a)
	return int64(len(m.analyses)), nil
}

type publishedEvent struct {
	userID    uuid.UUID
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(userID uuid.UUID, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID, eventType, payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.eventType)
	}
	return out
}

func trade(wallet string, dir domain.Direction, usd float64, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		TokenMint:     domain.SOLMint,
		Timestamp:     at,
		Signature:     wallet + at.String(),
		WalletAddress: wallet,
		Direction:     dir,
		USDAmount:     usd,
		Protocol:      "raydium",
	}
}
