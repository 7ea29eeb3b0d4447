package repositories

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nft-marketplace/backend/internal/models"
)

// AuditRepo stores mint/buy submission attempts.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO submission_audit (actor_address, flow, action, entity_id, tx_hash, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ActorAddress, entry.Flow, entry.Action, entry.EntityID, entry.TxHash, entry.Meta)
	return err
}

func (r *AuditRepo) ListByActor(ctx context.Context, address string, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_address, flow, action, entity_id, tx_hash, meta, created_at
		FROM submission_audit WHERE lower(actor_address) = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, strings.ToLower(address), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorAddress, &l.Flow, &l.Action, &l.EntityID, &l.TxHash, &l.Meta, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
