package repository

import (
	"context"
	"fmt"
	"time"

	"solfolio/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PortfolioRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPortfolioRepository(pool PgxPool, tracer trace.Tracer) *PortfolioRepository {
	return &PortfolioRepository{pool: pool, tracer: tracer}
}

var holdingColumns = []string{"user_id", "wallet_address", "token_mint", "symbol", "balance", "usd_value", "last_updated"}

func (r *PortfolioRepository) ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio-repo.list-holdings")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, wallet_address, token_mint, symbol, balance, usd_value, last_updated
		 FROM portfolio
		 WHERE user_id = $1
		 ORDER BY usd_value DESC, token_mint`,
		userID,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.UserID, &h.WalletAddress, &h.TokenMint, &h.Symbol, &h.Balance, &h.USDValue, &h.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// ReplaceHoldings swaps the user's holdings for the given set in a single
// transaction, so readers see either the old or the new rows.
func (r *PortfolioRepository) ReplaceHoldings(ctx context.Context, userID uuid.UUID, holdings []domain.Holding) error {
	ctx, span := r.tracer.Start(ctx, "portfolio-repo.replace-holdings")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.Int("holdings", len(holdings)))

	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM portfolio WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if len(holdings) == 0 {
			return nil
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"portfolio"}, holdingColumns,
			pgx.CopyFromSlice(len(holdings), func(i int) ([]any, error) {
				h := holdings[i]
				return []any{userID, h.WalletAddress, h.TokenMint, h.Symbol, h.Balance, h.USDValue, h.LastUpdated}, nil
			}),
		)
		return err
	})
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("replace holdings: %w", err)
	}
	return nil
}

// CalculateStats calls the calculate_portfolio_stats database function.
func (r *PortfolioRepository) CalculateStats(ctx context.Context, userID uuid.UUID) (domain.PortfolioStats, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio-repo.calculate-stats")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	var stats domain.PortfolioStats
	var largest *string
	err := r.pool.QueryRow(ctx,
		`SELECT total_value, token_count, wallet_count, largest_mint, largest_usd_value
		 FROM calculate_portfolio_stats($1)`,
		userID,
	).Scan(&stats.TotalUSD, &stats.TokenCount, &stats.WalletCount, &largest, &stats.LargestUSDValue)
	if err != nil {
		recordErr(span, err)
		return domain.PortfolioStats{}, fmt.Errorf("calculate portfolio stats: %w", err)
	}
	if largest != nil {
		stats.LargestMint = *largest
	}
	return stats, nil
}

func (r *PortfolioRepository) InsertSnapshot(ctx context.Context, snap domain.PortfolioSnapshot) error {
	ctx, span := r.tracer.Start(ctx, "portfolio-repo.insert-snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", snap.UserID.String()))

	_, err := r.pool.Exec(ctx,
		`INSERT INTO portfolio_history (user_id, total_usd, token_count, wallet_count, captured_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.UserID, snap.TotalUSD, snap.TokenCount, snap.WalletCount, snap.CapturedAt,
	)
	if err != nil {
		recordErr(span, err)
		return fmt.Errorf("insert portfolio snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the user's snapshots captured at or after since, oldest first.
func (r *PortfolioRepository) ListSnapshots(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.PortfolioSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio-repo.list-snapshots")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	rows, err := r.pool.Query(ctx,
		`SELECT user_id, total_usd, token_count, wallet_count, captured_at
		 FROM portfolio_history
		 WHERE user_id = $1 AND captured_at >= $2
		 ORDER BY captured_at ASC`,
		userID, since,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list portfolio snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make([]domain.PortfolioSnapshot, 0)
	for rows.Next() {
		var s domain.PortfolioSnapshot
		if err := rows.Scan(&s.UserID, &s.TotalUSD, &s.TokenCount, &s.WalletCount, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
