package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vultisig/tipjar/internal/types"
)

// InsertReceipt stores a ledger row. Re-delivered tasks carrying a signature
// that is already stored are ignored.
func (d *PostgresBackend) InsertReceipt(ctx context.Context, rec types.ReceiptRecord) error {
	if d.pool == nil {
		return fmt.Errorf("database pool is nil")
	}

	query := `INSERT INTO receipts
	(id, session_id, operation, authority, vault, signer, amount, signature, status, error_message, vault_lamports, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT DO NOTHING`

	var vaultLamports *int64
	if rec.VaultLamports != nil {
		v := int64(*rec.VaultLamports)
		vaultLamports = &v
	}
	var signature *string
	if rec.Signature != "" {
		signature = &rec.Signature
	}

	_, err := d.pool.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		string(rec.Operation),
		rec.Authority,
		rec.Vault,
		rec.Signer,
		int64(rec.Amount),
		signature,
		string(rec.Status),
		rec.ErrorMessage,
		vaultLamports,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

func (d *PostgresBackend) GetReceiptsByAuthority(ctx context.Context, authority string, take int, skip int) ([]types.ReceiptRecord, error) {
	if d.pool == nil {
		return nil, fmt.Errorf("database pool is nil")
	}

	query := `SELECT id, session_id, operation, authority, vault, signer, amount, signature, status, error_message, vault_lamports, created_at
	FROM receipts
	WHERE authority = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := d.pool.Query(ctx, query, authority, take, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ReceiptRecord, error) {
		var (
			rec           types.ReceiptRecord
			operation     string
			status        string
			amount        int64
			signature     *string
			vaultLamports *int64
		)
		err := row.Scan(
			&rec.ID,
			&rec.SessionID,
			&operation,
			&rec.Authority,
			&rec.Vault,
			&rec.Signer,
			&amount,
			&signature,
			&status,
			&rec.ErrorMessage,
			&vaultLamports,
			&rec.CreatedAt,
		)
		if err != nil {
			return rec, err
		}
		rec.Operation = types.OperationType(operation)
		rec.Status = types.ReceiptStatus(status)
		rec.Amount = types.Lamports(amount)
		if signature != nil {
			rec.Signature = *signature
		}
		if vaultLamports != nil {
			v := types.Lamports(*vaultLamports)
			rec.VaultLamports = &v
		}
		return rec, nil
	})
}
