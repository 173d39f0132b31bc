package pending

import (
	"context"
	"database/sql"
	"fmt"
)

// Put stores or replaces the entry for e.Key.
//
// Fails with ErrInvalidData on an empty key or empty signed payload,
// and with ErrStorageFull when the projected store size after the write
// would exceed the quota. Replacing an existing key is an upsert; the
// one-unbroadcast-signature-per-key invariant is the workflow layer's
// in-flight check, not a constraint here.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.Key.empty() {
		return fmt.Errorf("put %s: empty key: %w", e.Key, ErrInvalidData)
	}
	if e.SignedData == "" {
		return fmt.Errorf("put %s: empty signed data: %w", e.Key, ErrInvalidData)
	}
	if e.Metadata.Type == "" {
		return fmt.Errorf("put %s: empty operation type: %w", e.Key, ErrInvalidData)
	}
	status := e.Metadata.Status
	if status == "" {
		status = EntryPending
	}
	if !validStatus(status) {
		return fmt.Errorf("put %s: invalid status %q: %w", e.Key, status, ErrInvalidData)
	}

	if err := s.checkQuota(ctx, e); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_transactions
		(contract_address, operation_id, signed_data, created_at, tx_type, purpose, broadcast, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_address, operation_id) DO UPDATE SET
			signed_data = excluded.signed_data,
			created_at  = excluded.created_at,
			tx_type     = excluded.tx_type,
			purpose     = excluded.purpose,
			broadcast   = excluded.broadcast,
			status      = excluded.status
	`,
		e.Key.Contract.String(),
		e.Key.OperationID,
		e.SignedData,
		e.Timestamp,
		e.Metadata.Type,
		nullableString(e.Metadata.Purpose),
		boolToInt(e.Metadata.Broadcast),
		string(status),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", e.Key, err)
	}
	return nil
}

// Remove deletes the entry for key. Idempotent: removing an absent key
// is a no-op, not an error.
func (s *Store) Remove(ctx context.Context, key Key) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_transactions
		WHERE contract_address = ? AND operation_id = ?
	`, key.Contract.String(), key.OperationID)
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// MarkBroadcast flags the entry for key as submitted.
// Fails with ErrNotFound when no entry exists.
func (s *Store) MarkBroadcast(ctx context.Context, key Key) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_transactions SET broadcast = 1
		WHERE contract_address = ? AND operation_id = ?
	`, key.Contract.String(), key.OperationID)
	if err != nil {
		return fmt.Errorf("mark broadcast %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark broadcast %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("mark broadcast %s: %w", key, ErrNotFound)
	}
	return nil
}

// checkQuota projects the store size after writing e and rejects the
// write when it would exceed the bound. Only signed payload bytes are
// counted; fixed-width metadata is noise at quota scale.
func (s *Store) checkQuota(ctx context.Context, e Entry) error {
	var current int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(signed_data)), 0) FROM pending_transactions
	`).Scan(&current)
	if err != nil {
		return fmt.Errorf("project store size: %w", err)
	}

	// An upsert replaces the existing payload, so its size leaves.
	var existing int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(LENGTH(signed_data), 0) FROM pending_transactions
		WHERE contract_address = ? AND operation_id = ?
	`, e.Key.Contract.String(), e.Key.OperationID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("project store size: %w", err)
	}

	projected := current - existing + int64(len(e.SignedData))
	if projected > s.quota {
		return fmt.Errorf("put %s: projected size %d exceeds quota %d: %w",
			e.Key, projected, s.quota, ErrStorageFull)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
