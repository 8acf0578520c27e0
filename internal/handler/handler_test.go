package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/repository"
	"solfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("handler-test")

type stubPortfolio struct {
	wallets   []domain.Wallet
	addErr    error
	deleteErr error
	lastUser  uuid.UUID
	lastDays  time.Duration
}

func (s *stubPortfolio) ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	s.lastUser = userID
	return s.wallets, nil
}

func (s *stubPortfolio) AddWallet(ctx context.Context, userID uuid.UUID, address, name string) (domain.Wallet, error) {
	s.lastUser = userID
	if s.addErr != nil {
		return domain.Wallet{}, s.addErr
	}
	return domain.Wallet{ID: uuid.New(), UserID: userID, Address: address, Name: name, IsPrimary: true}, nil
}

func (s *stubPortfolio) DeleteWallet(ctx context.Context, userID, walletID uuid.UUID) error {
	return s.deleteErr
}

func (s *stubPortfolio) SetPrimaryWallet(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error) {
	return domain.Wallet{ID: walletID, UserID: userID, IsPrimary: true}, nil
}

func (s *stubPortfolio) WalletActivity(ctx context.Context, userID, walletID uuid.UUID, limit int) (service.WalletActivity, error) {
	return service.WalletActivity{}, repository.ErrNotFound
}

func (s *stubPortfolio) GetPortfolio(ctx context.Context, userID uuid.UUID) (service.PortfolioView, error) {
	return service.PortfolioView{Summary: domain.PortfolioSummary{TotalUSD: 42}}, nil
}

func (s *stubPortfolio) RefreshPortfolio(ctx context.Context, userID uuid.UUID) (service.PortfolioView, error) {
	return service.PortfolioView{}, errors.New("db gone")
}

func (s *stubPortfolio) GetStats(ctx context.Context, userID uuid.UUID) (domain.PortfolioStats, error) {
	return domain.PortfolioStats{TotalUSD: 10, TokenCount: 1, WalletCount: 1}, nil
}

func (s *stubPortfolio) GetHistory(ctx context.Context, userID uuid.UUID, lookback time.Duration) ([]domain.PortfolioSnapshot, error) {
	s.lastDays = lookback
	return nil, nil
}

type stubMarket struct {
	statsErr error
}

func (s *stubMarket) SearchTokens(ctx context.Context, query string) (service.SearchResult, error) {
	if query == "" {
		return service.SearchResult{}, fmt.Errorf("%w: query is required", service.ErrInvalidInput)
	}
	return service.SearchResult{Query: query, Tokens: []domain.TokenInfo{{Symbol: "SOL"}}}, nil
}

func (s *stubMarket) GetTokenStats(ctx context.Context, mint string) (*domain.TokenStats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	return &domain.TokenStats{Mint: mint, PriceUSD: domain.Float(1)}, nil
}

func (s *stubMarket) GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	return &domain.PriceSnapshot{Symbol: symbol, PriceUSD: 150}, nil
}

func (s *stubMarket) GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error) {
	return []*domain.PriceSnapshot{{Symbol: "SOL", PriceUSD: 150}}, nil
}

func (s *stubMarket) GetMarketChart(ctx context.Context, symbol string, days int) (service.MarketChart, error) {
	return service.MarketChart{Symbol: symbol, Days: days}, nil
}

func (s *stubMarket) GetTriggerOrders(ctx context.Context, wallet string) (service.OrdersResult, error) {
	return service.OrdersResult{}, fmt.Errorf("%w: bad", service.ErrInvalidWallet)
}

type stubAnalytics struct {
	lastWindow    string
	lastBucket    string
	lastThreshold float64
}

func (s *stubAnalytics) TradeSummary(ctx context.Context, mint, window string) (service.TradeSummaryResult, error) {
	s.lastWindow = window
	return service.TradeSummaryResult{TokenMint: mint, Window: "24h"}, nil
}

func (s *stubAnalytics) HolderMovement(ctx context.Context, mint, window string) (domain.HolderMovement, error) {
	return domain.HolderMovement{}, fmt.Errorf("%w: unsupported window", service.ErrInvalidInput)
}

func (s *stubAnalytics) TokenFlows(ctx context.Context, mint, window, bucket string) (domain.FlowAnalysis, error) {
	s.lastWindow, s.lastBucket = window, bucket
	return domain.FlowAnalysis{TokenMint: mint}, nil
}

func (s *stubAnalytics) Whales(ctx context.Context, mint, window string, threshold float64) (domain.WhaleReport, error) {
	s.lastThreshold = threshold
	return domain.WhaleReport{TokenMint: mint, ThresholdUSD: threshold}, nil
}

func (s *stubAnalytics) HolderDistribution(ctx context.Context, mint string) (domain.HolderDistribution, error) {
	return domain.HolderDistribution{TokenMint: mint}, nil
}

type stubRisk struct{}

func (stubRisk) Assess(ctx context.Context, mint string) (domain.RiskAssessment, error) {
	return domain.RiskAssessment{TokenMint: mint, Score: 12, Level: domain.RiskLow}, nil
}

func newTestRouter(deps Deps, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(testTracer, nil, deps).RegisterRoutes(r, apiKey)
	return r
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userHeader(id uuid.UUID) map[string]string {
	return map[string]string{"X-User-ID": id.String()}
}

func TestRequireUser(t *testing.T) {
	r := newTestRouter(Deps{Portfolio: &stubPortfolio{}}, "")

	w := do(r, http.MethodGet, "/api/wallets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/wallets", nil, map[string]string{"X-User-ID": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/wallets", nil, userHeader(uuid.New()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"wallets":[]}`, w.Body.String())
}

func TestAPIKeyAuth(t *testing.T) {
	r := newTestRouter(Deps{Market: &stubMarket{}}, "secret")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/prices", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/prices", nil, map[string]string{"X-API-Key": "nope"}).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/prices", nil, map[string]string{"X-API-Key": "secret"}).Code)
}

func TestCreateWallet(t *testing.T) {
	user := uuid.New()
	portfolio := &stubPortfolio{}
	r := newTestRouter(Deps{Portfolio: portfolio}, "")

	w := do(r, http.MethodPost, "/api/wallets", map[string]string{"address": "addr", "name": "main"}, userHeader(user))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var got domain.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "addr", got.Address)
	assert.Equal(t, user, portfolio.lastUser)

	w = do(r, http.MethodPost, "/api/wallets", map[string]string{"name": "no address"}, userHeader(user))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWalletErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", service.ErrInvalidWallet), http.StatusBadRequest},
		{repository.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("%w: no pool", service.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newTestRouter(Deps{Portfolio: &stubPortfolio{addErr: tc.err}}, "")
		w := do(r, http.MethodPost, "/api/wallets", map[string]string{"address": "a"}, userHeader(uuid.New()))
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestDeleteWallet(t *testing.T) {
	r := newTestRouter(Deps{Portfolio: &stubPortfolio{}}, "")
	w := do(r, http.MethodDelete, "/api/wallets/"+uuid.NewString(), nil, userHeader(uuid.New()))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/wallets/xyz", nil, userHeader(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newTestRouter(Deps{Portfolio: &stubPortfolio{deleteErr: repository.ErrNotFound}}, "")
	w = do(r, http.MethodDelete, "/api/wallets/"+uuid.NewString(), nil, userHeader(uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortfolioRoutes(t *testing.T) {
	portfolio := &stubPortfolio{}
	r := newTestRouter(Deps{Portfolio: portfolio}, "")
	user := userHeader(uuid.New())

	w := do(r, http.MethodGet, "/api/portfolio", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_usd":42`)

	w = do(r, http.MethodPost, "/api/portfolio/refresh", nil, user)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(r, http.MethodGet, "/api/portfolio/stats", nil, user)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/portfolio/history?days=7", nil, user)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7*24*time.Hour, portfolio.lastDays)
	assert.JSONEq(t, `{"days":7,"snapshots":[]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/wallets/"+uuid.NewString()+"/activity", nil, user)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarketRoutes(t *testing.T) {
	r := newTestRouter(Deps{Market: &stubMarket{}}, "")

	w := do(r, http.MethodGet, "/api/tokens/search?q=sol", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"symbol":"SOL"`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/tokens/search", nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/tokens/"+domain.SOLMint, nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/prices/sol", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/prices/doge", nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/prices/sol/chart?days=30", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/prices/sol/chart?days=x", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/orders/nope", nil, nil).Code)

	r = newTestRouter(Deps{Market: &stubMarket{statsErr: service.ErrTokenNotFound}}, "")
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/tokens/"+domain.SOLMint, nil, nil).Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	analytics := &stubAnalytics{}
	r := newTestRouter(Deps{Analytics: analytics}, "")
	base := "/api/analytics/" + domain.SOLMint

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base+"/summary?window=7d", nil, nil).Code)
	assert.Equal(t, "7d", analytics.lastWindow)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, base+"/holder-movement?window=1y", nil, nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base+"/flows?window=6h&bucket=15m", nil, nil).Code)
	assert.Equal(t, "15m", analytics.lastBucket)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base+"/whales?threshold=2500", nil, nil).Code)
	assert.Equal(t, 2500.0, analytics.lastThreshold)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, base+"/whales?threshold=-1", nil, nil).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base+"/holders", nil, nil).Code)
}

func TestWhalesRejectsNonFiniteThreshold(t *testing.T) {
	analytics := &stubAnalytics{}
	r := newTestRouter(Deps{Analytics: analytics}, "")
	base := "/api/analytics/" + domain.SOLMint + "/whales?threshold="

	for _, raw := range []string{"NaN", "Inf", "%2BInf", "-Inf", "1e400"} {
		w := do(r, http.MethodGet, base+raw, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
	assert.Zero(t, analytics.lastThreshold)
}

func TestUnavailableDependencies(t *testing.T) {
	r := newTestRouter(Deps{}, "")
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/portfolio"},
		{http.MethodGet, "/api/tokens/search?q=x"},
		{http.MethodGet, "/api/analytics/" + domain.SOLMint + "/summary"},
		{http.MethodGet, "/api/social/SOL"},
		{http.MethodGet, "/api/risk/" + domain.SOLMint},
		{http.MethodGet, "/ws"},
	}
	for _, p := range paths {
		w := do(r, p.method, p.path, nil, userHeader(uuid.New()))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, p.path)
	}
}

func TestRiskRoute(t *testing.T) {
	r := newTestRouter(Deps{Risk: stubRisk{}}, "")
	w := do(r, http.MethodGet, "/api/risk/"+domain.SOLMint, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got domain.RiskAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.RiskLow, got.Level)
}
