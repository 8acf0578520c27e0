package repository

import (
	"context"
	"errors"
	"fmt"

	"solfolio/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WalletRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewWalletRepository(pool PgxPool, tracer trace.Tracer) *WalletRepository {
	return &WalletRepository{pool: pool, tracer: tracer}
}

const walletColumns = `id, user_id, address, name, is_primary, created_at`

func scanWallet(row pgx.Row) (domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Address, &w.Name, &w.IsPrimary, &w.CreatedAt)
	return w, err
}

// ListByUser returns the user's wallets, primary first then oldest first.
func (r *WalletRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.list-by-user")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()))

	rows, err := r.pool.Query(ctx,
		`SELECT `+walletColumns+`
		 FROM wallets
		 WHERE user_id = $1
		 ORDER BY is_primary DESC, created_at ASC`,
		userID,
	)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	wallets := make([]domain.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Create inserts a wallet. A user's first wallet becomes primary. When two
// first wallets race, the loser of the primary index is inserted as secondary.
func (r *WalletRepository) Create(ctx context.Context, userID uuid.UUID, address, name string) (domain.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.String("address", address))

	w, err := scanWallet(r.pool.QueryRow(ctx,
		`INSERT INTO wallets (user_id, address, name, is_primary)
		 VALUES ($1, $2, $3, NOT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1))
		 RETURNING `+walletColumns,
		userID, address, name,
	))
	if isPrimaryConflict(err) {
		w, err = scanWallet(r.pool.QueryRow(ctx,
			`INSERT INTO wallets (user_id, address, name, is_primary)
			 VALUES ($1, $2, $3, FALSE)
			 RETURNING `+walletColumns,
			userID, address, name,
		))
	}
	if err != nil {
		recordErr(span, err)
		if isDuplicateKeyError(err) {
			return domain.Wallet{}, ErrDuplicate
		}
		return domain.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	return w, nil
}

// Delete hard-deletes a wallet and its holdings. Deleting the primary wallet
// promotes the user's oldest remaining wallet. A wallet owned by another user
// is ErrNotFound.
func (r *WalletRepository) Delete(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.delete")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.String("wallet_id", walletID.String()))

	var deleted domain.Wallet
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		w, err := scanWallet(tx.QueryRow(ctx,
			`DELETE FROM wallets WHERE id = $1 AND user_id = $2 RETURNING `+walletColumns,
			walletID, userID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		deleted = w

		if _, err := tx.Exec(ctx,
			`DELETE FROM portfolio WHERE user_id = $1 AND wallet_address = $2`,
			userID, w.Address,
		); err != nil {
			return err
		}

		if !w.IsPrimary {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE wallets SET is_primary = TRUE
			 WHERE id = (SELECT id FROM wallets WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1)`,
			userID,
		)
		return err
	})
	if err != nil {
		recordErr(span, err)
		if errors.Is(err, ErrNotFound) {
			return domain.Wallet{}, ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("delete wallet: %w", err)
	}
	return deleted, nil
}

// SetPrimary makes walletID the user's only primary wallet.
func (r *WalletRepository) SetPrimary(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.set-primary")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID.String()), attribute.String("wallet_id", walletID.String()))

	var updated domain.Wallet
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1 AND user_id = $2)`,
			walletID, userID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		// Clear first: the partial unique index allows one primary per user.
		if _, err := tx.Exec(ctx,
			`UPDATE wallets SET is_primary = FALSE WHERE user_id = $1 AND is_primary AND id <> $2`,
			userID, walletID,
		); err != nil {
			return err
		}
		w, err := scanWallet(tx.QueryRow(ctx,
			`UPDATE wallets SET is_primary = TRUE WHERE id = $1 AND user_id = $2 RETURNING `+walletColumns,
			walletID, userID,
		))
		if err != nil {
			return err
		}
		updated = w
		return nil
	})
	if err != nil {
		recordErr(span, err)
		if errors.Is(err, ErrNotFound) {
			return domain.Wallet{}, ErrNotFound
		}
		return domain.Wallet{}, fmt.Errorf("set primary wallet: %w", err)
	}
	return updated, nil
}

// ListUsersWithWallets returns every user owning at least one wallet.
func (r *WalletRepository) ListUsersWithWallets(ctx context.Context) ([]uuid.UUID, error) {
	ctx, span := r.tracer.Start(ctx, "wallet-repo.list-users")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("list users with wallets: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}
