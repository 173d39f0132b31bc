package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/PracticalParticle/secureops/internal/chain"
)

// Get returns the entry for key.
//
// Fails with ErrNotFound when no entry exists, and with
// *SerializationError when the row exists but cannot be decoded. The
// distinction matters: "absent" lets the caller sign afresh, "corrupt"
// must not.
func (s *Store) Get(ctx context.Context, key Key) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT contract_address, operation_id, signed_data, created_at, tx_type, purpose, broadcast, status
		FROM pending_transactions
		WHERE contract_address = ? AND operation_id = ?
	`, key.Contract.String(), key.OperationID)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// ListByContract returns all entries for a contract, oldest first,
// operation id as tiebreaker. A corrupt row fails the whole listing
// rather than being dropped silently.
func (s *Store) ListByContract(ctx context.Context, contract chain.Address) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT contract_address, operation_id, signed_data, created_at, tx_type, purpose, broadcast, status
		FROM pending_transactions
		WHERE contract_address = ?
		ORDER BY created_at ASC, operation_id ASC
	`, contract.String())
	if err != nil {
		return nil, fmt.Errorf("list pending for %s: %w", contract, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending for %s: %w", contract, err)
	}
	return entries, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		contractStr string
		opID        string
		signedData  string
		createdAt   int64
		txType      string
		purpose     sql.NullString
		broadcast   int
		status      string
	)
	if err := row.Scan(&contractStr, &opID, &signedData, &createdAt, &txType, &purpose, &broadcast, &status); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan pending entry: %w", err)
	}

	contract, err := chain.ParseAddress(contractStr)
	if err != nil {
		return Entry{}, &SerializationError{
			Key: Key{OperationID: opID},
			Err: fmt.Errorf("contract address: %w", err),
		}
	}
	key := Key{Contract: contract, OperationID: opID}

	// Structural checks: a row that fails these is corrupt, and corrupt
	// must never masquerade as absent.
	if !json.Valid([]byte(signedData)) {
		return Entry{}, &SerializationError{Key: key, Err: fmt.Errorf("signed data is not valid JSON")}
	}
	if !validStatus(EntryStatus(status)) {
		return Entry{}, &SerializationError{Key: key, Err: fmt.Errorf("unknown status %q", status)}
	}

	return Entry{
		Key:        key,
		SignedData: signedData,
		Timestamp:  createdAt,
		Metadata: Metadata{
			Type:      txType,
			Purpose:   purpose.String,
			Broadcast: broadcast != 0,
			Status:    EntryStatus(status),
		},
	}, nil
}
