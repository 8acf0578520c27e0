package aggregate

import (
	"sort"

	"solfolio/internal/domain"
)

// Tier thresholds as a percentage of total supply.
const (
	whalePercent   = 1.0
	sharkPercent   = 0.1
	dolphinPercent = 0.01
)

// Tier classifies a holder by share of supply.
func Tier(supplyPercent float64) domain.HolderTier {
	switch {
	case supplyPercent >= whalePercent:
		return domain.TierWhale
	case supplyPercent >= sharkPercent:
		return domain.TierShark
	case supplyPercent >= dolphinPercent:
		return domain.TierDolphin
	default:
		return domain.TierFish
	}
}

// HolderDistribution buckets a holder sample by share of totalSupply. With a
// zero supply every holder lands in the fish tier and percentages stay 0.
func HolderDistribution(holders []domain.TokenHolder, totalSupply float64) domain.HolderDistribution {
	sorted := make([]domain.TokenHolder, len(holders))
	copy(sorted, holders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Balance > sorted[j].Balance })

	tiers := []domain.HolderTier{domain.TierWhale, domain.TierShark, domain.TierDolphin, domain.TierFish}
	buckets := make(map[domain.HolderTier]*domain.HolderBucket, len(tiers))
	for _, tier := range tiers {
		buckets[tier] = &domain.HolderBucket{Tier: tier}
	}

	var top10 float64
	for i, h := range sorted {
		pct := share(h.Balance, totalSupply)
		b := buckets[Tier(pct)]
		b.Holders++
		b.Balance += h.Balance
		if i < 10 {
			top10 += h.Balance
		}
	}

	dist := domain.HolderDistribution{
		SampledHolders:     len(sorted),
		TotalSupply:        totalSupply,
		Top10Concentration: Round2(share(top10, totalSupply)),
		Buckets:            make([]domain.HolderBucket, 0, len(tiers)),
		TopHolders:         sorted,
	}
	for _, tier := range tiers {
		b := buckets[tier]
		b.SupplyPercent = Round2(share(b.Balance, totalSupply))
		dist.Buckets = append(dist.Buckets, *b)
	}
	if len(dist.TopHolders) > 10 {
		dist.TopHolders = dist.TopHolders[:10]
	}
	return dist
}

func share(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return part / total * 100
}
