package sql

import (
	"context"
	"time"

	"github.com/bcnelson/gateway-address-manager/internal/domain"
)

const gatewayColumns = `id, namespace, name, gateway_class_name, created_at, updated_at`

func insertGatewayAddresses(ctx context.Context, db dbInterface, gatewayID string, addrs domain.AddressList) error {
	for i, a := range addrs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO gateway_addresses (gateway_id, seq, type, value) VALUES ($1, $2, $3, $4)`,
			gatewayID, i, string(a.Type), a.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

func getGatewayAddresses(ctx context.Context, db dbInterface, gatewayID string) (domain.AddressList, error) {
	addrs := domain.AddressList{}
	err := db.SelectContext(ctx, &addrs,
		`SELECT type, value FROM gateway_addresses WHERE gateway_id = $1 ORDER BY seq`, gatewayID)
	return addrs, err
}

func loadAddresses(ctx context.Context, db dbInterface, gateways []*domain.Gateway) error {
	for _, gw := range gateways {
		addrs, err := getGatewayAddresses(ctx, db, gw.ID)
		if err != nil {
			return err
		}
		gw.Addresses = addrs
	}
	return nil
}

func createGateway(ctx context.Context, db dbInterface, gw *domain.Gateway) error {
	gw.CreatedAt = dbTime(gw.CreatedAt)
	gw.UpdatedAt = dbTime(gw.UpdatedAt)
	_, err := db.ExecContext(ctx,
		`INSERT INTO gateways (id, namespace, name, gateway_class_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		gw.ID, gw.Namespace, gw.Name, gw.GatewayClassName, gw.CreatedAt, gw.UpdatedAt)
	if err != nil {
		return wrapUniqueError(err)
	}
	return insertGatewayAddresses(ctx, db, gw.ID, gw.Addresses)
}

func (s *Store) CreateGateway(ctx context.Context, gw *domain.Gateway) error {
	return s.inTx(ctx, func(db dbInterface) error {
		return createGateway(ctx, db, gw)
	})
}

func (t *Tx) CreateGateway(ctx context.Context, gw *domain.Gateway) error {
	return createGateway(ctx, t.tx, gw)
}

func getGatewayWhere(ctx context.Context, db dbInterface, where string, args ...any) (*domain.Gateway, error) {
	var gw domain.Gateway
	err := db.GetContext(ctx, &gw, `SELECT `+gatewayColumns+` FROM gateways WHERE `+where, args...)
	if err != nil {
		return nil, notFound(err)
	}
	if gw.Addresses, err = getGatewayAddresses(ctx, db, gw.ID); err != nil {
		return nil, err
	}
	return &gw, nil
}

func (s *Store) GetGateway(ctx context.Context, namespace, name string) (*domain.Gateway, error) {
	return getGatewayWhere(ctx, s.db, `namespace = $1 AND name = $2`, namespace, name)
}

func (t *Tx) GetGateway(ctx context.Context, namespace, name string) (*domain.Gateway, error) {
	return getGatewayWhere(ctx, t.tx, `namespace = $1 AND name = $2`, namespace, name)
}

func (s *Store) GetGatewayByID(ctx context.Context, id string) (*domain.Gateway, error) {
	return getGatewayWhere(ctx, s.db, `id = $1`, id)
}

func (t *Tx) GetGatewayByID(ctx context.Context, id string) (*domain.Gateway, error) {
	return getGatewayWhere(ctx, t.tx, `id = $1`, id)
}

func listGateways(ctx context.Context, db dbInterface, namespace string) ([]*domain.Gateway, error) {
	gateways := []*domain.Gateway{}
	err := db.SelectContext(ctx, &gateways,
		`SELECT `+gatewayColumns+` FROM gateways WHERE namespace = $1 ORDER BY name`, namespace)
	if err != nil {
		return nil, err
	}
	return gateways, loadAddresses(ctx, db, gateways)
}

func (s *Store) ListGateways(ctx context.Context, namespace string) ([]*domain.Gateway, error) {
	return listGateways(ctx, s.db, namespace)
}

func (t *Tx) ListGateways(ctx context.Context, namespace string) ([]*domain.Gateway, error) {
	return listGateways(ctx, t.tx, namespace)
}

func listAllGateways(ctx context.Context, db dbInterface) ([]*domain.Gateway, error) {
	gateways := []*domain.Gateway{}
	err := db.SelectContext(ctx, &gateways,
		`SELECT `+gatewayColumns+` FROM gateways ORDER BY namespace, name`)
	if err != nil {
		return nil, err
	}
	return gateways, loadAddresses(ctx, db, gateways)
}

func (s *Store) ListAllGateways(ctx context.Context) ([]*domain.Gateway, error) {
	return listAllGateways(ctx, s.db)
}

func (t *Tx) ListAllGateways(ctx context.Context) ([]*domain.Gateway, error) {
	return listAllGateways(ctx, t.tx)
}

// updateGateway rewrites the gateway row and replaces its address rows in
// list order.
func updateGateway(ctx context.Context, db dbInterface, gw *domain.Gateway) error {
	updatedAt := dbTime(time.Now())
	if !updatedAt.After(gw.UpdatedAt) {
		updatedAt = dbTime(gw.UpdatedAt).Add(time.Microsecond)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE gateways SET gateway_class_name = $1, updated_at = $2 WHERE id = $3`,
		gw.GatewayClassName, updatedAt, gw.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM gateway_addresses WHERE gateway_id = $1`, gw.ID); err != nil {
		return err
	}
	if err := insertGatewayAddresses(ctx, db, gw.ID, gw.Addresses); err != nil {
		return err
	}
	gw.UpdatedAt = updatedAt
	return nil
}

func (s *Store) UpdateGateway(ctx context.Context, gw *domain.Gateway) error {
	return s.inTx(ctx, func(db dbInterface) error {
		return updateGateway(ctx, db, gw)
	})
}

func (t *Tx) UpdateGateway(ctx context.Context, gw *domain.Gateway) error {
	return updateGateway(ctx, t.tx, gw)
}

func deleteGateway(ctx context.Context, db dbInterface, namespace, name string) error {
	var id string
	err := db.GetContext(ctx, &id, `SELECT id FROM gateways WHERE namespace = $1 AND name = $2`, namespace, name)
	if err != nil {
		return notFound(err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM gateway_addresses WHERE gateway_id = $1`, id); err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM gateways WHERE id = $1`, id)
	return err
}

func (s *Store) DeleteGateway(ctx context.Context, namespace, name string) error {
	return s.inTx(ctx, func(db dbInterface) error {
		return deleteGateway(ctx, db, namespace, name)
	})
}

func (t *Tx) DeleteGateway(ctx context.Context, namespace, name string) error {
	return deleteGateway(ctx, t.tx, namespace, name)
}

func listNamespaces(ctx context.Context, db dbInterface) ([]*domain.Namespace, error) {
	namespaces := []*domain.Namespace{}
	err := db.SelectContext(ctx, &namespaces,
		`SELECT namespace, COUNT(*) AS gateway_count FROM gateways GROUP BY namespace ORDER BY namespace`)
	return namespaces, err
}

func (s *Store) ListNamespaces(ctx context.Context) ([]*domain.Namespace, error) {
	return listNamespaces(ctx, s.db)
}

func (t *Tx) ListNamespaces(ctx context.Context) ([]*domain.Namespace, error) {
	return listNamespaces(ctx, t.tx)
}

func renameNamespace(ctx context.Context, db dbInterface, from, to string) (int, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE gateways SET namespace = $1, updated_at = $2 WHERE namespace = $3`,
		to, dbTime(time.Now()), from)
	if err != nil {
		return 0, wrapUniqueError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		return 0, domain.ErrNotFound
	}
	return int(rows), nil
}

func (s *Store) RenameNamespace(ctx context.Context, from, to string) (int, error) {
	var moved int
	err := s.inTx(ctx, func(db dbInterface) error {
		var err error
		moved, err = renameNamespace(ctx, db, from, to)
		return err
	})
	return moved, err
}

func (t *Tx) RenameNamespace(ctx context.Context, from, to string) (int, error) {
	return renameNamespace(ctx, t.tx, from, to)
}
