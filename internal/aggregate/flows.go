package aggregate

import (
	"sort"
	"strings"
	"time"

	"solfolio/internal/domain"
)

const unknownProtocol = "unknown"

// FlowSeries buckets trades into fixed intervals aligned to the Unix epoch,
// ascending by start. Empty buckets between trades are not emitted.
func FlowSeries(trades []domain.TradeRecord, bucket time.Duration) []domain.FlowBucket {
	if bucket <= 0 {
		bucket = time.Hour
	}
	byStart := make(map[int64]*domain.FlowBucket)
	for _, t := range trades {
		start := t.Timestamp.Truncate(bucket).UTC()
		b, ok := byStart[start.Unix()]
		if !ok {
			b = &domain.FlowBucket{Start: start}
			byStart[start.Unix()] = b
		}
		switch t.Direction {
		case domain.DirectionBuy:
			b.Inflow += t.USDAmount
		case domain.DirectionSell:
			b.Outflow += t.USDAmount
		default:
			continue
		}
		b.TradeCount++
	}

	out := make([]domain.FlowBucket, 0, len(byStart))
	for _, b := range byStart {
		b.NetFlow = b.Inflow - b.Outflow
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ProtocolBreakdown sums flow per protocol with each protocol's share of
// total volume, largest first.
func ProtocolBreakdown(trades []domain.TradeRecord) []domain.ProtocolFlow {
	byName := make(map[string]*domain.ProtocolFlow)
	var total float64
	for _, t := range trades {
		name := strings.TrimSpace(t.Protocol)
		if name == "" {
			name = unknownProtocol
		}
		if t.Direction != domain.DirectionBuy && t.Direction != domain.DirectionSell {
			continue
		}
		pf, ok := byName[name]
		if !ok {
			pf = &domain.ProtocolFlow{Protocol: name}
			byName[name] = pf
		}
		if t.Direction == domain.DirectionBuy {
			pf.Inflow += t.USDAmount
		} else {
			pf.Outflow += t.USDAmount
		}
		total += t.USDAmount
	}

	out := make([]domain.ProtocolFlow, 0, len(byName))
	for _, pf := range byName {
		if total > 0 {
			pf.Share = Round2((pf.Inflow + pf.Outflow) / total * 100)
		}
		out = append(out, *pf)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].Inflow+out[i].Outflow, out[j].Inflow+out[j].Outflow
		if vi != vj {
			return vi > vj
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}
