// Package aggregate reduces trade, holder and holding records into the
// summary metrics served by the analytics and portfolio endpoints. Every
// function is pure: no I/O and no clock reads beyond the arguments.
package aggregate

import (
	"math"
	"sort"
	"time"

	"solfolio/internal/domain"
)

// balancedBand is the net-flow percentage inside which flow is balanced.
const balancedBand = 5.0

// SummarizeTrades partitions USD volume by direction and counts distinct
// wallets on each side.
func SummarizeTrades(trades []domain.TradeRecord) domain.TradeSummary {
	var s domain.TradeSummary
	buyers := make(map[string]struct{})
	sellers := make(map[string]struct{})

	for _, t := range trades {
		switch t.Direction {
		case domain.DirectionBuy:
			s.TotalBuyVolume += t.USDAmount
			s.BuyCount++
			if t.WalletAddress != "" {
				buyers[t.WalletAddress] = struct{}{}
			}
		case domain.DirectionSell:
			s.TotalSellVolume += t.USDAmount
			s.SellCount++
			if t.WalletAddress != "" {
				sellers[t.WalletAddress] = struct{}{}
			}
		}
	}

	s.UniqueBuyers = len(buyers)
	s.UniqueSellers = len(sellers)
	s.NetFlow = s.TotalBuyVolume - s.TotalSellVolume
	s.NetFlowPercent = NetFlowPercent(s.TotalBuyVolume, s.TotalSellVolume)
	return s
}

// NetFlowPercent is (buy - sell) / (buy + sell) * 100, or 0 with no volume.
func NetFlowPercent(buy, sell float64) float64 {
	total := buy + sell
	if total == 0 {
		return 0
	}
	return (buy - sell) / total * 100
}

// FlowDirection classifies a summary; anything within ±5% is balanced.
func FlowDirection(s domain.TradeSummary) domain.FlowDirection {
	switch {
	case s.NetFlowPercent > balancedBand:
		return domain.FlowInflow
	case s.NetFlowPercent < -balancedBand:
		return domain.FlowOutflow
	default:
		return domain.FlowBalanced
	}
}

// Within returns the trades with since <= Timestamp <= until.
func Within(trades []domain.TradeRecord, since, until time.Time) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Timestamp.Before(since) || t.Timestamp.After(until) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Round2 rounds v to two decimals for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func behavior(net float64) domain.WalletBehavior {
	switch {
	case net > 0:
		return domain.BehaviorAccumulating
	case net < 0:
		return domain.BehaviorDistributing
	default:
		return domain.BehaviorNeutral
	}
}

// walletFlows groups trades by wallet. Trades without a wallet or a known
// direction are skipped.
func walletFlows(trades []domain.TradeRecord) []domain.WalletFlow {
	byWallet := make(map[string]*domain.WalletFlow)
	for _, t := range trades {
		if t.WalletAddress == "" {
			continue
		}
		var buy, sell float64
		switch t.Direction {
		case domain.DirectionBuy:
			buy = t.USDAmount
		case domain.DirectionSell:
			sell = t.USDAmount
		default:
			continue
		}
		wf, ok := byWallet[t.WalletAddress]
		if !ok {
			wf = &domain.WalletFlow{WalletAddress: t.WalletAddress}
			byWallet[t.WalletAddress] = wf
		}
		wf.BuyVolume += buy
		wf.SellVolume += sell
		wf.TradeCount++
		if t.Timestamp.After(wf.LastSeen) {
			wf.LastSeen = t.Timestamp
		}
	}

	out := make([]domain.WalletFlow, 0, len(byWallet))
	for _, wf := range byWallet {
		wf.NetFlow = wf.BuyVolume - wf.SellVolume
		wf.Behavior = behavior(wf.NetFlow)
		out = append(out, *wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletAddress < out[j].WalletAddress })
	return out
}
