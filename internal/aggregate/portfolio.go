package aggregate

import (
	"sort"

	"solfolio/internal/domain"
)

// PortfolioTotals sums holdings across wallets into per-token allocations,
// largest USD value first.
func PortfolioTotals(holdings []domain.Holding) domain.PortfolioSummary {
	byMint := make(map[string]*domain.Allocation)
	wallets := make(map[string]struct{})
	var total float64

	for _, h := range holdings {
		wallets[h.WalletAddress] = struct{}{}
		a, ok := byMint[h.TokenMint]
		if !ok {
			a = &domain.Allocation{TokenMint: h.TokenMint, Symbol: h.Symbol}
			byMint[h.TokenMint] = a
		}
		if a.Symbol == "" {
			a.Symbol = h.Symbol
		}
		a.Balance += h.Balance
		a.USDValue += h.USDValue
		total += h.USDValue
	}

	summary := domain.PortfolioSummary{
		TotalUSD:    total,
		WalletCount: len(wallets),
		TokenCount:  len(byMint),
		Allocations: make([]domain.Allocation, 0, len(byMint)),
	}
	for _, a := range byMint {
		a.Percent = Round2(share(a.USDValue, total))
		summary.Allocations = append(summary.Allocations, *a)
	}
	sort.Slice(summary.Allocations, func(i, j int) bool {
		ai, aj := summary.Allocations[i], summary.Allocations[j]
		if ai.USDValue != aj.USDValue {
			return ai.USDValue > aj.USDValue
		}
		return ai.TokenMint < aj.TokenMint
	})
	return summary
}
