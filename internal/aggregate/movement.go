package aggregate

import (
	"sort"
	"time"

	"solfolio/internal/domain"
)

// topWallets caps the accumulator and distributor lists.
const topWallets = 10

// HolderMovement reduces the trades inside [now-window, now] to per-wallet
// behavior counts. Window and mint labels are left to the caller.
func HolderMovement(trades []domain.TradeRecord, window time.Duration, now time.Time) domain.HolderMovement {
	inWindow := Within(trades, now.Add(-window), now)
	flows := walletFlows(inWindow)
	summary := SummarizeTrades(inWindow)

	m := domain.HolderMovement{
		ActiveWallets:   len(flows),
		Summary:         summary,
		Direction:       FlowDirection(summary),
		TopAccumulators: []domain.WalletFlow{},
		TopDistributors: []domain.WalletFlow{},
	}
	for _, wf := range flows {
		switch wf.Behavior {
		case domain.BehaviorAccumulating:
			m.Accumulating++
			m.TopAccumulators = append(m.TopAccumulators, wf)
		case domain.BehaviorDistributing:
			m.Distributing++
			m.TopDistributors = append(m.TopDistributors, wf)
		default:
			m.Neutral++
		}
	}

	sort.SliceStable(m.TopAccumulators, func(i, j int) bool {
		return m.TopAccumulators[i].NetFlow > m.TopAccumulators[j].NetFlow
	})
	sort.SliceStable(m.TopDistributors, func(i, j int) bool {
		return m.TopDistributors[i].NetFlow < m.TopDistributors[j].NetFlow
	})
	if len(m.TopAccumulators) > topWallets {
		m.TopAccumulators = m.TopAccumulators[:topWallets]
	}
	if len(m.TopDistributors) > topWallets {
		m.TopDistributors = m.TopDistributors[:topWallets]
	}
	return m
}

// Whales aggregates, per wallet, only the trades whose USD amount meets
// threshold, sorted by total volume descending.
func Whales(trades []domain.TradeRecord, threshold float64) []domain.WalletFlow {
	flows := walletFlows(LargeTrades(trades, threshold))
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].BuyVolume+flows[i].SellVolume > flows[j].BuyVolume+flows[j].SellVolume
	})
	return flows
}

// LargeTrades returns the trades meeting threshold.
func LargeTrades(trades []domain.TradeRecord, threshold float64) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0)
	for _, t := range trades {
		if t.USDAmount >= threshold {
			out = append(out, t)
		}
	}
	return out
}
