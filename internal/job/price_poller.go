package job

import (
	"context"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	flowWindow   = "24h"
	flowBucket   = "1h"
	flowInterval = 5 * time.Minute
	mintsPerTick = 2
)

// PricePoller runs background goroutines that keep spot prices warm in Redis
// and record flow analyses for tracked mints.
type PricePoller struct {
	tracer       trace.Tracer
	logger       *zap.Logger
	prices       PriceRefresher
	flows        FlowAnalyzer
	trackedMints []string
	pollInterval time.Duration
	flowInterval time.Duration
	flowDelay    time.Duration
}

type PriceRefresher interface {
	RefreshPrices(ctx context.Context) error
}

// FlowAnalyzer persists a flow analysis as a side effect.
type FlowAnalyzer interface {
	TokenFlows(ctx context.Context, mint, window, bucket string) (domain.FlowAnalysis, error)
}

func NewPricePoller(tracer trace.Tracer, logger *zap.Logger, prices PriceRefresher, flows FlowAnalyzer, trackedMints []string, pollIntervalSecs int) *PricePoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricePoller{
		tracer:       tracer,
		logger:       logger.Named("price-poller"),
		prices:       prices,
		flows:        flows,
		trackedMints: trackedMints,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		flowInterval: flowInterval,
		flowDelay:    10 * time.Second,
	}
}

// Start launches background polling goroutines. Blocks until ctx is cancelled.
func (p *PricePoller) Start(ctx context.Context) {
	p.logger.Info("price poller starting",
		zap.Duration("interval", p.pollInterval),
		zap.Int("tracked_mints", len(p.trackedMints)),
	)

	go p.pollLoop(ctx, "current-prices", p.pollInterval, p.prices.RefreshPrices)

	if p.flows != nil && len(p.trackedMints) > 0 {
		go p.pollTrackedMints(ctx)
	}

	<-ctx.Done()
	p.logger.Info("price poller stopped")
}

func (p *PricePoller) pollLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	// Run immediately on start
	if err := fn(ctx); err != nil {
		p.logger.Warn("initial poll failed", zap.String("poller", name), zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				p.logger.Warn("poll failed", zap.String("poller", name), zap.Error(err))
			}
		}
	}
}

func (p *PricePoller) pollTrackedMints(ctx context.Context) {
	// Stagger against the price poller.
	select {
	case <-ctx.Done():
		return
	case <-time.After(p.flowDelay):
	}

	ticker := time.NewTicker(p.flowInterval)
	defer ticker.Stop()

	mintIndex := 0
	p.analyzeBatch(ctx, &mintIndex, mintsPerTick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.analyzeBatch(ctx, &mintIndex, mintsPerTick)
		}
	}
}

// analyzeBatch walks trackedMints round-robin, count mints per call.
func (p *PricePoller) analyzeBatch(ctx context.Context, mintIndex *int, count int) {
	if len(p.trackedMints) == 0 {
		return
	}
	if count > len(p.trackedMints) {
		count = len(p.trackedMints)
	}
	for i := 0; i < count; i++ {
		mint := p.trackedMints[*mintIndex%len(p.trackedMints)]
		*mintIndex++

		ctx, span := p.tracer.Start(ctx, "price-poller.analyze-mint")
		span.SetAttributes(attribute.String("mint", mint))
		analysis, err := p.flows.TokenFlows(ctx, mint, flowWindow, flowBucket)
		span.End()
		if err != nil {
			p.logger.Warn("tracked mint flow analysis failed", zap.String("mint", mint), zap.Error(err))
			continue
		}
		p.logger.Debug("tracked mint analyzed",
			zap.String("mint", mint),
			zap.String("direction", string(analysis.Direction)),
			zap.Float64("net_flow_pct", analysis.Summary.NetFlowPercent),
		)
	}
}
