package store

import (
	"context"
	"fmt"
	"time"
)

// AddIdentity inserts a new tracked identity. When orderPos is zero the
// identity is appended after the current highest position.
func (s *Store) AddIdentity(ctx context.Context, ident *Identity) error {
	if ident.OrderPos == 0 {
		var max int
		err := s.db.GetContext(ctx, &max,
			`SELECT COALESCE(MAX(order_pos), 0) FROM identities`)
		if err != nil {
			return fmt.Errorf("next order position: %w", err)
		}
		ident.OrderPos = max + 1
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (name, external_account_id, credential_ref, color, order_pos, slot_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ident.Name, ident.ExternalAccountID, ident.CredentialRef,
		ident.Color, ident.OrderPos, ident.SlotIndex, ident.CreatedAt)
	if err != nil {
		return fmt.Errorf("add identity %s: %w", ident.Name, err)
	}
	ident.ID, _ = res.LastInsertId()
	return nil
}

// GetIdentity returns one identity by id.
func (s *Store) GetIdentity(ctx context.Context, id int64) (*Identity, error) {
	var ident Identity
	err := s.db.GetContext(ctx, &ident, `SELECT * FROM identities WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get identity %d: %w", id, err)
	}
	return &ident, nil
}

// ListIdentities returns all identities in display order.
func (s *Store) ListIdentities(ctx context.Context) ([]Identity, error) {
	var idents []Identity
	err := s.db.SelectContext(ctx, &idents,
		`SELECT * FROM identities ORDER BY order_pos`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return idents, nil
}

// UpdateSlotIndex records the external account slot for an identity.
func (s *Store) UpdateSlotIndex(ctx context.Context, id int64, slot int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE identities SET slot_index = ? WHERE id = ?`, slot, id)
	if err != nil {
		return fmt.Errorf("update slot index %d: %w", id, err)
	}
	return nil
}
