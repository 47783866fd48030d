package sql

import (
	"context"
	"time"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

const apiKeyColumns = `id, name, key_hash, key_prefix, created_at, last_used_at`

func createAPIKey(ctx context.Context, db dbInterface, key *domain.APIKey) error {
	key.CreatedAt = dbTime(key.CreatedAt)
	_, err := db.ExecContext(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.LastUsedAt)
	return wrapUniqueError(err)
}

func getAPIKeyByHash(ctx context.Context, db dbInterface, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	if err := db.GetContext(ctx, &key, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash); err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

func listAPIKeys(ctx context.Context, db dbInterface) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	if err := db.SelectContext(ctx, &keys, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at`); err != nil {
		return nil, err
	}
	return keys, nil
}

func deleteAPIKey(ctx context.Context, db dbInterface, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func touchAPIKey(ctx context.Context, db dbInterface, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, dbTime(time.Now()), id)
	return err
}

func countAPIKeys(ctx context.Context, db dbInterface) (int, error) {
	var n int
	err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM api_keys`)
	return n, err
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, s.db, key)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, s.db, keyHash)
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, s.db)
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, s.db, id)
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return touchAPIKey(ctx, s.db, id)
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, s.db)
}

func (t *Tx) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, t.tx, key)
}

func (t *Tx) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, t.tx, keyHash)
}

func (t *Tx) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, t.tx)
}

func (t *Tx) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, t.tx, id)
}

func (t *Tx) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return touchAPIKey(ctx, t.tx, id)
}

func (t *Tx) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, t.tx)
}
