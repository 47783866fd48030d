package sql

import (
	"context"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

const policyVersionColumns = `id, version_number, rendered_policy, tailscale_etag, push_status, push_error, created_at, pushed_at`

func createPolicyVersion(ctx context.Context, db dbInterface, version *domain.PolicyVersion) error {
	version.CreatedAt = dbTime(version.CreatedAt)
	version.PushedAt = dbTimePtr(version.PushedAt)
	_, err := db.ExecContext(ctx,
		`INSERT INTO policy_versions (`+policyVersionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		version.ID, version.VersionNumber, version.RenderedPolicy, version.TailscaleETag,
		version.PushStatus, version.PushError, version.CreatedAt, version.PushedAt)
	return wrapUniqueError(err)
}

func (s *Store) CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	return createPolicyVersion(ctx, s.db, version)
}

func (t *Tx) CreatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	return createPolicyVersion(ctx, t.tx, version)
}

func getPolicyVersion(ctx context.Context, db dbInterface, query string, args ...any) (*domain.PolicyVersion, error) {
	var version domain.PolicyVersion
	err := db.GetContext(ctx, &version, query, args...)
	if err != nil {
		return nil, notFound(err)
	}
	return &version, nil
}

func (s *Store) GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error) {
	return getPolicyVersion(ctx, s.db, `SELECT `+policyVersionColumns+` FROM policy_versions WHERE id = $1`, id)
}

func (t *Tx) GetPolicyVersion(ctx context.Context, id string) (*domain.PolicyVersion, error) {
	return getPolicyVersion(ctx, t.tx, `SELECT `+policyVersionColumns+` FROM policy_versions WHERE id = $1`, id)
}

const latestPolicyVersionQuery = `SELECT ` + policyVersionColumns + ` FROM policy_versions ORDER BY version_number DESC LIMIT 1`

func (s *Store) GetLatestPolicyVersion(ctx context.Context) (*domain.PolicyVersion, error) {
	return getPolicyVersion(ctx, s.db, latestPolicyVersionQuery)
}

func (t *Tx) GetLatestPolicyVersion(ctx context.Context) (*domain.PolicyVersion, error) {
	return getPolicyVersion(ctx, t.tx, latestPolicyVersionQuery)
}

func listPolicyVersions(ctx context.Context, db dbInterface, limit, offset int) ([]*domain.PolicyVersion, error) {
	versions := []*domain.PolicyVersion{}
	err := db.SelectContext(ctx, &versions,
		`SELECT `+policyVersionColumns+` FROM policy_versions ORDER BY version_number DESC LIMIT $1 OFFSET $2`, limit, offset)
	return versions, err
}

func (s *Store) ListPolicyVersions(ctx context.Context, limit, offset int) ([]*domain.PolicyVersion, error) {
	return listPolicyVersions(ctx, s.db, limit, offset)
}

func (t *Tx) ListPolicyVersions(ctx context.Context, limit, offset int) ([]*domain.PolicyVersion, error) {
	return listPolicyVersions(ctx, t.tx, limit, offset)
}

func updatePolicyVersion(ctx context.Context, db dbInterface, version *domain.PolicyVersion) error {
	version.PushedAt = dbTimePtr(version.PushedAt)
	result, err := db.ExecContext(ctx,
		`UPDATE policy_versions SET tailscale_etag = $1, push_status = $2, push_error = $3, pushed_at = $4 WHERE id = $5`,
		version.TailscaleETag, version.PushStatus, version.PushError, version.PushedAt, version.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	return updatePolicyVersion(ctx, s.db, version)
}

func (t *Tx) UpdatePolicyVersion(ctx context.Context, version *domain.PolicyVersion) error {
	return updatePolicyVersion(ctx, t.tx, version)
}
