package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solfolio/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenActivityRepository stores fetched holders and trades so analytics can
// fall back to them when a provider is unavailable.
type TokenActivityRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTokenActivityRepository(pool PgxPool, tracer trace.Tracer) *TokenActivityRepository {
	return &TokenActivityRepository{pool: pool, tracer: tracer}
}

func (r *TokenActivityRepository) UpsertHolders(ctx context.Context, holders []domain.TokenHolder) error {
	if len(holders) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "token-activity-repo.upsert-holders")
	defer span.End()
	span.SetAttributes(attribute.Int("holders", len(holders)))

	batch := &pgx.Batch{}
	for _, h := range holders {
		batch.Queue(
			`INSERT INTO token_holders (token_mint, owner_address, balance, usd_value, rank, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (token_mint, owner_address) DO UPDATE SET
			     balance = EXCLUDED.balance,
			     usd_value = EXCLUDED.usd_value,
			     rank = EXCLUDED.rank,
			     updated_at = EXCLUDED.updated_at`,
			h.TokenMint, h.OwnerAddress, h.Balance, h.USDValue, h.Rank, h.UpdatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range holders {
		if _, err := br.Exec(); err != nil {
			recordErr(span, err)
			return fmt.Errorf("upsert holders: %w", err)
		}
	}
	return nil
}

// ListHolders returns stored holders of mint ordered by rank.
func (r *TokenActivityRepository) ListHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error) {
	ctx, span := r.tracer.Start(ctx, "token-activity-repo.list-holders")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	rows, err := r.pool.Query(ctx,
		`SELECT token_mint, owner_address, balance, usd_value, rank, updated_at
		 FROM token_holders
		 WHERE token_mint = $1
		 ORDER BY rank ASC, balance DESC
		 LIMIT $2`,
		mint, limit,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	holders := make([]domain.TokenHolder, 0)
	for rows.Next() {
		var h domain.TokenHolder
		if err := rows.Scan(&h.TokenMint, &h.OwnerAddress, &h.Balance, &h.USDValue, &h.Rank, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan holder: %w", err)
		}
		holders = append(holders, h)
	}
	return holders, rows.Err()
}

// UpsertTransactions stores trades, ignoring ones already recorded. It
// returns the number of newly inserted rows.
func (r *TokenActivityRepository) UpsertTransactions(ctx context.Context, trades []domain.TradeRecord) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	ctx, span := r.tracer.Start(ctx, "token-activity-repo.upsert-transactions")
	defer span.End()
	span.SetAttributes(attribute.Int("trades", len(trades)))

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(
			`INSERT INTO token_transactions
			     (token_mint, signature, wallet_address, direction, token_amount, usd_amount, protocol, block_time)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (token_mint, signature, wallet_address) DO NOTHING`,
			t.TokenMint, t.Signature, t.WalletAddress, string(t.Direction), t.TokenAmount, t.USDAmount, t.Protocol, t.Timestamp,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range trades {
		tag, err := br.Exec()
		if err != nil {
			recordErr(span, err)
			return inserted, fmt.Errorf("upsert transactions: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	span.SetAttributes(attribute.Int("inserted", inserted))
	return inserted, nil
}

// ListTransactions returns stored trades of mint since the given time, newest first.
func (r *TokenActivityRepository) ListTransactions(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error) {
	ctx, span := r.tracer.Start(ctx, "token-activity-repo.list-transactions")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	rows, err := r.pool.Query(ctx,
		`SELECT token_mint, signature, wallet_address, direction, token_amount, usd_amount, protocol, block_time
		 FROM token_transactions
		 WHERE token_mint = $1 AND block_time >= $2
		 ORDER BY block_time DESC
		 LIMIT $3`,
		mint, since, limit,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	trades := make([]domain.TradeRecord, 0)
	for rows.Next() {
		var t domain.TradeRecord
		var direction string
		if err := rows.Scan(&t.TokenMint, &t.Signature, &t.WalletAddress, &direction, &t.TokenAmount, &t.USDAmount, &t.Protocol, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Direction = domain.Direction(direction)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (r *TokenActivityRepository) InsertFlowAnalysis(ctx context.Context, a domain.TokenFlowAnalysis) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "token-activity-repo.insert-flow-analysis")
	defer span.End()
	span.SetAttributes(attribute.String("mint", a.TokenMint))

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO token_flow_analysis
		     (token_mint, time_window, buy_volume, sell_volume, net_flow, net_flow_percent, unique_buyers, unique_sellers, analyzed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		a.TokenMint, a.Window, a.BuyVolume, a.SellVolume, a.NetFlow, a.NetFlowPercent, a.UniqueBuyers, a.UniqueSellers, a.AnalyzedAt,
	).Scan(&id)
	if err != nil {
		recordErr(span, err)
		return 0, fmt.Errorf("insert flow analysis: %w", err)
	}
	return id, nil
}

// LatestFlowAnalysis returns the most recent analysis of mint or ErrNotFound.
func (r *TokenActivityRepository) LatestFlowAnalysis(ctx context.Context, mint string) (domain.TokenFlowAnalysis, error) {
	ctx, span := r.tracer.Start(ctx, "token-activity-repo.latest-flow-analysis")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	var a domain.TokenFlowAnalysis
	err := r.pool.QueryRow(ctx,
		`SELECT id, token_mint, time_window, buy_volume, sell_volume, net_flow, net_flow_percent, unique_buyers, unique_sellers, analyzed_at
		 FROM token_flow_analysis
		 WHERE token_mint = $1
		 ORDER BY analyzed_at DESC, id DESC
		 LIMIT 1`,
		mint,
	).Scan(&a.ID, &a.TokenMint, &a.Window, &a.BuyVolume, &a.SellVolume, &a.NetFlow, &a.NetFlowPercent, &a.UniqueBuyers, &a.UniqueSellers, &a.AnalyzedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TokenFlowAnalysis{}, ErrNotFound
	}
	if err != nil {
		recordErr(span, err)
		return domain.TokenFlowAnalysis{}, fmt.Errorf("latest flow analysis: %w", err)
	}
	return a, nil
}
