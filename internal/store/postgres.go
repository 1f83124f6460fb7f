package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

const operationsSchema = `
CREATE TABLE IF NOT EXISTS operations (
	id            UUID PRIMARY KEY,
	sender        TEXT NOT NULL,
	user_op_hash  TEXT NOT NULL,
	tx_hash       TEXT NOT NULL DEFAULT '',
	kind          TEXT NOT NULL,
	payment_type  SMALLINT NOT NULL,
	token_address TEXT,
	status        TEXT NOT NULL,
	error_kind    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS operations_sender_idx ON operations (sender, created_at DESC);
`

// PostgresStore persists operation history in Postgres.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects to the database, verifies the connection, and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, operationsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("Connected to operation history database")
	return &PostgresStore{pool: pool, logger: logger.Log}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// InsertOperation records a newly submitted operation.
func (s *PostgresStore) InsertOperation(ctx context.Context, rec *business.OperationRecord) error {
	var tokenAddr *string
	if rec.TokenAddress != nil {
		hex := rec.TokenAddress.Hex()
		tokenAddr = &hex
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO operations
			(id, sender, user_op_hash, tx_hash, kind, payment_type, token_address, status, error_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID,
		rec.Sender.Hex(),
		rec.UserOpHash.Hex(),
		rec.TxHash.Hex(),
		rec.Kind,
		int16(rec.PaymentType),
		tokenAddr,
		rec.Status,
		rec.ErrorKind,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert operation: %w", err)
	}
	return nil
}

// UpdateOperationStatus moves a recorded operation to its final status.
func (s *PostgresStore) UpdateOperationStatus(ctx context.Context, id uuid.UUID, status string, txHash common.Hash, errorKind string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE operations
		SET status = $2, tx_hash = $3, error_kind = $4, updated_at = $5
		WHERE id = $1`,
		id, status, txHash.Hex(), errorKind, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update operation %s: %w", id, err)
	}
	return nil
}

// ListOperationsBySender returns the wallet's most recent operations.
func (s *PostgresStore) ListOperationsBySender(ctx context.Context, sender common.Address, limit int32) ([]business.OperationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sender, user_op_hash, tx_hash, kind, payment_type, token_address, status, error_kind, created_at, updated_at
		FROM operations
		WHERE sender = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		sender.Hex(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer rows.Close()

	var records []business.OperationRecord
	for rows.Next() {
		var (
			rec         business.OperationRecord
			senderHex   string
			userOpHash  string
			txHash      string
			paymentType int16
			tokenAddr   *string
		)
		if err := rows.Scan(
			&rec.ID, &senderHex, &userOpHash, &txHash, &rec.Kind,
			&paymentType, &tokenAddr, &rec.Status, &rec.ErrorKind,
			&rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan operation row: %w", err)
		}
		rec.Sender = common.HexToAddress(senderHex)
		rec.UserOpHash = common.HexToHash(userOpHash)
		rec.TxHash = common.HexToHash(txHash)
		rec.PaymentType = business.PaymentType(paymentType)
		if tokenAddr != nil {
			addr := common.HexToAddress(*tokenAddr)
			rec.TokenAddress = &addr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read operation rows: %w", err)
	}
	return records, nil
}
