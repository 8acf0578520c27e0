// Package risk scores a token from market, holder, flow and social data
// using a fixed weighted formula.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"solfolio/internal/domain"
)

// Component names, in presentation order.
const (
	Liquidity     = "liquidity"
	Concentration = "concentration"
	Volatility    = "volatility"
	Flow          = "flow"
	Organic       = "organic"
	Social        = "social"
)

var componentOrder = []string{Liquidity, Concentration, Volatility, Flow, Organic, Social}

var weights = map[string]float64{
	Liquidity:     0.25,
	Concentration: 0.25,
	Volatility:    0.15,
	Flow:          0.15,
	Organic:       0.10,
	Social:        0.10,
}

// Input is everything the scorer may use. Nil parts count as unavailable.
type Input struct {
	Mint         string
	Symbol       string
	Stats        *domain.TokenStats
	Distribution *domain.HolderDistribution
	Trades       *domain.TradeSummary
	Social       *domain.SocialMetrics
}

type component struct {
	risk      float64
	available bool
	detail    string
}

// Score builds an assessment. Weights are renormalized over the available
// components; Confidence is the share of total weight that was available.
// With nothing available the score is a neutral 50 and the level unknown.
func Score(in Input, now time.Time) domain.RiskAssessment {
	components := map[string]component{
		Liquidity:     liquidity(in.Stats),
		Concentration: concentration(in.Distribution),
		Volatility:    volatility(in.Stats),
		Flow:          flow(in.Trades),
		Organic:       organic(in.Stats),
		Social:        social(in.Social),
	}

	activeWeight := 0.0
	for name, c := range components {
		if c.available {
			activeWeight += weights[name]
		}
	}

	out := domain.RiskAssessment{
		TokenMint:  in.Mint,
		Symbol:     in.Symbol,
		Factors:    make([]domain.RiskFactor, 0, len(componentOrder)),
		AssessedAt: now,
	}

	score := 0.0
	for _, name := range componentOrder {
		c := components[name]
		f := domain.RiskFactor{Name: name, Available: c.available, Detail: c.detail}
		if c.available && activeWeight > 0 {
			f.Risk = clamp(c.risk, 0, 1)
			f.Weight = weights[name] / activeWeight
			score += f.Weight * f.Risk
		}
		out.Factors = append(out.Factors, f)
	}

	if activeWeight <= 0 {
		out.Score = 50
		out.Level = domain.RiskUnknown
		return out
	}

	out.Score = math.Round(clamp(score, 0, 1)*10000) / 100
	out.Level = Level(out.Score)
	out.Confidence = math.Round(clamp(activeWeight, 0, 1)*100) / 100
	return out
}

// Level maps a 0..100 score to a risk level.
func Level(score float64) domain.RiskLevel {
	switch {
	case score < 25:
		return domain.RiskLow
	case score < 50:
		return domain.RiskModerate
	case score < 75:
		return domain.RiskHigh
	default:
		return domain.RiskCritical
	}
}

// liquidity: $10M+ pool depth is no risk, $10k or less is full risk.
func liquidity(s *domain.TokenStats) component {
	if s == nil || s.Liquidity == nil {
		return component{}
	}
	liq := *s.Liquidity
	if liq <= 0 {
		return component{risk: 1, available: true, detail: "no liquidity"}
	}
	return component{
		risk:      (7 - math.Log10(liq)) / 3,
		available: true,
		detail:    fmt.Sprintf("liquidity $%.0f", liq),
	}
}

// concentration: top-10 holders owning 80% or more of supply is full risk.
func concentration(d *domain.HolderDistribution) component {
	if d == nil || d.SampledHolders == 0 || d.TotalSupply <= 0 {
		return component{}
	}
	return component{
		risk:      d.Top10Concentration / 80,
		available: true,
		detail:    fmt.Sprintf("top 10 hold %.2f%%", d.Top10Concentration),
	}
}

// volatility: a 50% daily move is full risk.
func volatility(s *domain.TokenStats) component {
	if s == nil || s.PriceChange24h == nil {
		return component{}
	}
	chg := *s.PriceChange24h
	return component{
		risk:      math.Abs(chg) / 50,
		available: true,
		detail:    fmt.Sprintf("24h change %.2f%%", chg),
	}
}

// flow: full outflow is full risk, balanced flow is 0.5.
func flow(t *domain.TradeSummary) component {
	if t == nil || t.TotalVolume() == 0 {
		return component{}
	}
	return component{
		risk:      0.5 - t.NetFlowPercent/200,
		available: true,
		detail:    fmt.Sprintf("net flow %.2f%%", t.NetFlowPercent),
	}
}

func organic(s *domain.TokenStats) component {
	if s == nil || s.OrganicScore == nil {
		return component{}
	}
	detail := fmt.Sprintf("organic score %.1f", *s.OrganicScore)
	if s.OrganicLabel != "" {
		detail += " (" + strings.ToLower(s.OrganicLabel) + ")"
	}
	return component{risk: 1 - *s.OrganicScore/100, available: true, detail: detail}
}

// social prefers Galaxy Score and falls back to sentiment.
func social(m *domain.SocialMetrics) component {
	if m == nil {
		return component{}
	}
	switch {
	case m.GalaxyScore != nil:
		return component{risk: 1 - *m.GalaxyScore/100, available: true, detail: fmt.Sprintf("galaxy score %.0f", *m.GalaxyScore)}
	case m.Sentiment != nil:
		return component{risk: 1 - *m.Sentiment/100, available: true, detail: fmt.Sprintf("sentiment %.0f%%", *m.Sentiment)}
	default:
		return component{}
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
