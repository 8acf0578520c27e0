package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"solfolio/internal/aggregate"
	"solfolio/internal/domain"
	"solfolio/internal/provider"
	"solfolio/internal/realtime"
	"solfolio/internal/repository"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxWalletName     = 64
	walletConcurrency = 4
)

type WalletStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	Create(ctx context.Context, userID uuid.UUID, address, name string) (domain.Wallet, error)
	Delete(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error)
	SetPrimary(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error)
	ListUsersWithWallets(ctx context.Context) ([]uuid.UUID, error)
}

type HoldingStore interface {
	ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error)
	ReplaceHoldings(ctx context.Context, userID uuid.UUID, holdings []domain.Holding) error
	CalculateStats(ctx context.Context, userID uuid.UUID) (domain.PortfolioStats, error)
	InsertSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error
	ListSnapshots(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.PortfolioSnapshot, error)
}

// BalanceProvider is the Helius surface.
type BalanceProvider interface {
	SOLBalance(ctx context.Context, address string) (float64, error)
	TokenBalances(ctx context.Context, address string) ([]provider.TokenBalance, error)
	WalletTransfers(ctx context.Context, address string, limit int) ([]domain.TradeRecord, error)
}

// MintPricer prices mints and reports which sources answered.
type MintPricer interface {
	PricesForMints(ctx context.Context, mints []string) (map[string]float64, domain.SourceReport)
}

type PortfolioView struct {
	Summary     domain.PortfolioSummary `json:"summary"`
	Holdings    []domain.Holding        `json:"holdings"`
	LastUpdated *time.Time              `json:"last_updated,omitempty"`
	Sources     domain.SourceReport     `json:"sources,omitempty"`
}

type WalletActivity struct {
	Wallet    domain.Wallet        `json:"wallet"`
	Transfers []domain.TradeRecord `json:"transfers"`
	Sources   domain.SourceReport  `json:"sources"`
}

// ValidateAddress accepts base58 strings that decode to a 32 byte public key.
func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidWallet)
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWallet, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: decoded length %d, want 32", ErrInvalidWallet, len(decoded))
	}
	return nil
}

// PortfolioService owns wallets and the holdings derived from them.
type PortfolioService struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	wallets  WalletStore
	holdings HoldingStore
	balances BalanceProvider
	pricer   MintPricer
	events   EventPublisher
	now      func() time.Time
}

func NewPortfolioService(
	tracer trace.Tracer,
	logger *zap.Logger,
	wallets WalletStore,
	holdings HoldingStore,
	balances BalanceProvider,
	pricer MintPricer,
	events EventPublisher,
) *PortfolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{
		tracer:   tracer,
		logger:   logger.Named("portfolio"),
		wallets:  wallets,
		holdings: holdings,
		balances: balances,
		pricer:   pricer,
		events:   events,
		now:      time.Now,
	}
}

func (s *PortfolioService) publish(userID uuid.UUID, eventType string, payload any) {
	if s.events != nil {
		s.events.Publish(userID, eventType, payload)
	}
}

func (s *PortfolioService) ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.list-wallets")
	defer span.End()
	return s.wallets.ListByUser(ctx, userID)
}

func (s *PortfolioService) AddWallet(ctx context.Context, userID uuid.UUID, address, name string) (domain.Wallet, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.add-wallet")
	defer span.End()

	address = strings.TrimSpace(address)
	if err := ValidateAddress(address); err != nil {
		return domain.Wallet{}, err
	}
	name = strings.TrimSpace(name)
	if len(name) > maxWalletName {
		return domain.Wallet{}, fmt.Errorf("%w: name longer than %d characters", ErrInvalidInput, maxWalletName)
	}
	span.SetAttributes(attribute.String("address", address))

	w, err := s.wallets.Create(ctx, userID, address, name)
	if err != nil {
		return domain.Wallet{}, err
	}
	s.publish(userID, realtime.EventWalletCreated, w)
	return w, nil
}

func (s *PortfolioService) DeleteWallet(ctx context.Context, userID, walletID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.delete-wallet")
	defer span.End()

	w, err := s.wallets.Delete(ctx, userID, walletID)
	if err != nil {
		return err
	}
	s.publish(userID, realtime.EventWalletDeleted, w)
	return nil
}

func (s *PortfolioService) SetPrimaryWallet(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.set-primary")
	defer span.End()

	w, err := s.wallets.SetPrimary(ctx, userID, walletID)
	if err != nil {
		return domain.Wallet{}, err
	}
	s.publish(userID, realtime.EventWalletPrimary, w)
	return w, nil
}

// GetPortfolio returns the stored holdings with allocation totals.
func (s *PortfolioService) GetPortfolio(ctx context.Context, userID uuid.UUID) (PortfolioView, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.get-portfolio")
	defer span.End()

	holdings, err := s.holdings.ListHoldings(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}
	return buildView(holdings, nil), nil
}

func buildView(holdings []domain.Holding, sources domain.SourceReport) PortfolioView {
	view := PortfolioView{
		Summary:  aggregate.PortfolioTotals(holdings),
		Holdings: holdings,
		Sources:  sources,
	}
	for _, h := range holdings {
		if view.LastUpdated == nil || h.LastUpdated.After(*view.LastUpdated) {
			t := h.LastUpdated
			view.LastUpdated = &t
		}
	}
	return view
}

type walletBalances struct {
	address string
	sol     float64
	tokens  []provider.TokenBalance
	failed  bool
}

// RefreshPortfolio refetches every wallet's balances in parallel, prices
// them and replaces the stored holdings in one transaction. A wallet whose
// balances could not be fetched keeps its previous holdings.
func (s *PortfolioService) RefreshPortfolio(ctx context.Context, userID uuid.UUID) (PortfolioView, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}
	previous, err := s.holdings.ListHoldings(ctx, userID)
	if err != nil {
		return PortfolioView{}, err
	}

	var sources domain.SourceCollector
	results := make([]walletBalances, len(wallets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(walletConcurrency)
	for i, w := range wallets {
		g.Go(func() error {
			results[i] = s.fetchWallet(gctx, w.Address, &sources)
			return nil
		})
	}
	_ = g.Wait()

	now := s.now().UTC()
	var fresh []domain.Holding
	var mints []string
	seenMint := make(map[string]struct{})
	failed := make(map[string]struct{})
	for _, r := range results {
		if r.failed {
			failed[r.address] = struct{}{}
			continue
		}
		// Native SOL shares its mint with wrapped SOL token accounts, and a
		// wallet may hold several accounts of one mint: one row per mint.
		byMint := make(map[string]int)
		add := func(mint string, amount float64) {
			if i, ok := byMint[mint]; ok {
				fresh[i].Balance += amount
				return
			}
			h := domain.Holding{UserID: userID, WalletAddress: r.address, TokenMint: mint, Balance: amount, LastUpdated: now}
			if a, ok := domain.AssetByMint(mint); ok {
				h.Symbol = a.Symbol
			}
			byMint[mint] = len(fresh)
			fresh = append(fresh, h)
		}
		if r.sol > 0 {
			add(domain.SOLMint, r.sol)
		}
		for _, tb := range r.tokens {
			add(tb.Mint, tb.Amount)
		}
	}
	for _, h := range fresh {
		if _, ok := seenMint[h.TokenMint]; !ok {
			seenMint[h.TokenMint] = struct{}{}
			mints = append(mints, h.TokenMint)
		}
	}

	if len(mints) > 0 && s.pricer != nil {
		prices, priceSources := s.pricer.PricesForMints(ctx, mints)
		for _, st := range priceSources {
			sources.Add(st)
		}
		for i := range fresh {
			fresh[i].USDValue = fresh[i].Balance * prices[fresh[i].TokenMint]
		}
	}

	next := fresh
	for _, h := range previous {
		if _, ok := failed[h.WalletAddress]; ok {
			next = append(next, h)
		}
	}

	if err := s.holdings.ReplaceHoldings(ctx, userID, next); err != nil {
		return PortfolioView{}, err
	}

	view := buildView(next, sources.Report())
	s.publish(userID, realtime.EventPortfolioRefreshed, view.Summary)
	s.logger.Info("portfolio refreshed",
		zap.String("user_id", userID.String()),
		zap.Int("wallets", len(wallets)),
		zap.Int("holdings", len(next)),
		zap.Int("failed_wallets", len(failed)),
	)
	return view, nil
}

func (s *PortfolioService) fetchWallet(ctx context.Context, address string, sources *domain.SourceCollector) walletBalances {
	out := walletBalances{address: address}

	var wg sync.WaitGroup
	var solErr, tokErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.sol, solErr = s.balances.SOLBalance(ctx, address)
	}()
	go func() {
		defer wg.Done()
		out.tokens, tokErr = s.balances.TokenBalances(ctx, address)
	}()
	wg.Wait()

	sources.Add(provider.Status("helius", "sol_balance:"+address, solErr, false))
	sources.Add(provider.Status("helius", "token_balances:"+address, tokErr, len(out.tokens) == 0))
	if solErr != nil || tokErr != nil {
		out.failed = true
		s.logger.Warn("wallet balance fetch failed",
			zap.String("address", address),
			zap.NamedError("sol_error", solErr),
			zap.NamedError("token_error", tokErr),
		)
	}
	return out
}

func (s *PortfolioService) GetStats(ctx context.Context, userID uuid.UUID) (domain.PortfolioStats, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.get-stats")
	defer span.End()
	return s.holdings.CalculateStats(ctx, userID)
}

// GetHistory returns snapshots captured within the lookback window.
func (s *PortfolioService) GetHistory(ctx context.Context, userID uuid.UUID, lookback time.Duration) ([]domain.PortfolioSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.get-history")
	defer span.End()
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return s.holdings.ListSnapshots(ctx, userID, s.now().Add(-lookback))
}

// CaptureSnapshot records the user's current stored totals in the history.
func (s *PortfolioService) CaptureSnapshot(ctx context.Context, userID uuid.UUID) (domain.PortfolioSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.capture-snapshot")
	defer span.End()

	stats, err := s.holdings.CalculateStats(ctx, userID)
	if err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	snap := domain.PortfolioSnapshot{
		UserID:      userID,
		TotalUSD:    stats.TotalUSD,
		TokenCount:  stats.TokenCount,
		WalletCount: stats.WalletCount,
		CapturedAt:  s.now().UTC(),
	}
	if err := s.holdings.InsertSnapshot(ctx, snap); err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	return snap, nil
}

func (s *PortfolioService) ListUsersWithWallets(ctx context.Context) ([]uuid.UUID, error) {
	return s.wallets.ListUsersWithWallets(ctx)
}

// WalletActivity lists recent token transfers of one of the user's wallets.
func (s *PortfolioService) WalletActivity(ctx context.Context, userID, walletID uuid.UUID, limit int) (WalletActivity, error) {
	ctx, span := s.tracer.Start(ctx, "portfolio-service.wallet-activity")
	defer span.End()

	wallets, err := s.wallets.ListByUser(ctx, userID)
	if err != nil {
		return WalletActivity{}, err
	}
	var wallet *domain.Wallet
	for i := range wallets {
		if wallets[i].ID == walletID {
			wallet = &wallets[i]
			break
		}
	}
	if wallet == nil {
		return WalletActivity{}, repository.ErrNotFound
	}

	var sources domain.SourceCollector
	transfers, err := s.balances.WalletTransfers(ctx, wallet.Address, limit)
	record(&sources, "helius", "wallet_transfers", err, len(transfers) == 0)
	if err != nil || transfers == nil {
		transfers = []domain.TradeRecord{}
	}
	return WalletActivity{Wallet: *wallet, Transfers: transfers, Sources: sources.Report()}, nil
}
