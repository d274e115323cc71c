package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Name, user.PasswordHash).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ── Lists ──

func (s *PostgresStore) InsertList(ctx context.Context, list List) (List, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO lists (id, name, status, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, list.ID, list.Name, list.Status, list.OwnerID).Scan(&list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		return List{}, fmt.Errorf("insert list: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) ListsByOwner(ctx context.Context, ownerID string) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, owner_id, created_at, updated_at
		FROM lists
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	defer rows.Close()

	lists := make([]List, 0)
	for rows.Next() {
		var list List
		if err := rows.Scan(&list.ID, &list.Name, &list.Status, &list.OwnerID, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lists: %w", err)
	}
	return lists, nil
}

func (s *PostgresStore) GetList(ctx context.Context, listID string) (List, error) {
	var list List
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, owner_id, created_at, updated_at
		FROM lists
		WHERE id = $1
	`, listID).Scan(&list.ID, &list.Name, &list.Status, &list.OwnerID, &list.CreatedAt, &list.UpdatedAt)
	if err != nil {
		return List{}, err
	}
	return list, nil
}

// UpdateList writes back a fully-merged list record. The caller loads the
// record, applies the patch, and hands the result here.
func (s *PostgresStore) UpdateList(ctx context.Context, list List) (List, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE lists
		SET name = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, list.ID, list.Name, list.Status).Scan(&list.UpdatedAt)
	if err != nil {
		return List{}, fmt.Errorf("update list: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) DeleteList(ctx context.Context, listID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

// ── Items ──

func (s *PostgresStore) InsertItem(ctx context.Context, item Item) (Item, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO list_items (id, list_id, name, quantity, unit, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, item.ID, item.ListID, item.Name, item.Quantity, item.Unit, item.Notes, item.Status).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// InsertItems bulk-inserts in slice order so a duplicated list keeps the
// original item order under the created_at sort.
func (s *PostgresStore) InsertItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin items tx: %w", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO list_items (id, list_id, name, quantity, unit, notes, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.ListID, item.Name, item.Quantity, item.Unit, item.Notes, item.Status); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit items tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) ItemsByList(ctx context.Context, listID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_id, name, quantity, unit, notes, status, created_at, updated_at
		FROM list_items
		WHERE list_id = $1
		ORDER BY created_at, id
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit, &item.Notes, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, itemID string) (Item, error) {
	var item Item
	err := s.db.QueryRowContext(ctx, `
		SELECT id, list_id, name, quantity, unit, notes, status, created_at, updated_at
		FROM list_items
		WHERE id = $1
	`, itemID).Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &item.Unit, &item.Notes, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item Item) (Item, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE list_items
		SET name = $2, quantity = $3, unit = $4, notes = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, item.ID, item.Name, item.Quantity, item.Unit, item.Notes, item.Status).Scan(&item.UpdatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE id = $1`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteItemsByList(ctx context.Context, listID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM list_items WHERE list_id = $1`, listID); err != nil {
		return fmt.Errorf("delete items by list: %w", err)
	}
	return nil
}

// ── Shares ──

func (s *PostgresStore) InsertShare(ctx context.Context, share Share) (Share, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO shares (id, list_id, token, status, shopkeeper_name, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, share.ID, share.ListID, share.Token, share.Status, share.ShopkeeperName, share.ExpiresAt).Scan(&share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return Share{}, fmt.Errorf("insert share: %w", err)
	}
	return share, nil
}

// RevokeActiveShares bulk-flips every active share for the list. It is a
// separate statement from any following insert; see the service layer for
// the known race window.
func (s *PostgresStore) RevokeActiveShares(ctx context.Context, listID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shares
		SET status = $2, updated_at = NOW()
		WHERE list_id = $1 AND status = $3
	`, listID, ShareStatusRevoked, ShareStatusActive)
	if err != nil {
		return fmt.Errorf("revoke active shares: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveShareByToken(ctx context.Context, token string) (Share, error) {
	var share Share
	err := s.db.QueryRowContext(ctx, `
		SELECT id, list_id, token, status, shopkeeper_name, expires_at, created_at, updated_at
		FROM shares
		WHERE token = $1 AND status = $2
	`, token, ShareStatusActive).Scan(&share.ID, &share.ListID, &share.Token, &share.Status, &share.ShopkeeperName, &share.ExpiresAt, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return Share{}, err
	}
	return share, nil
}

func (s *PostgresStore) UpdateShareShopkeeper(ctx context.Context, shareID, shopkeeperName string) (Share, error) {
	var share Share
	err := s.db.QueryRowContext(ctx, `
		UPDATE shares
		SET shopkeeper_name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, list_id, token, status, shopkeeper_name, expires_at, created_at, updated_at
	`, shareID, shopkeeperName).Scan(&share.ID, &share.ListID, &share.Token, &share.Status, &share.ShopkeeperName, &share.ExpiresAt, &share.CreatedAt, &share.UpdatedAt)
	if err != nil {
		return Share{}, fmt.Errorf("update share shopkeeper: %w", err)
	}
	return share, nil
}
