package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// PermissionRepository implements storage.PermissionRepository.
type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

func (r *PermissionRepository) List(ctx context.Context, page storage.ListPage) ([]domain.Permission, error) {
	db := getDB(ctx, r.pool)

	order := "ASC"
	if page.Order == "desc" {
		order = "DESC"
	}
	limit, offset := clampPage(page)

	rows, err := db.Query(ctx, `
		SELECT name, description FROM permissions
		ORDER BY name `+order+`
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, *p)
	}
	return perms, rows.Err()
}

func (r *PermissionRepository) Retrieve(ctx context.Context, name string) (*domain.Permission, error) {
	db := getDB(ctx, r.pool)
	row := db.QueryRow(ctx, `SELECT name, description FROM permissions WHERE name = $1`, name)
	return r.scan(row)
}

func (r *PermissionRepository) Insert(ctx context.Context, perm *domain.Permission) error {
	if err := perm.Validate(); err != nil {
		return domain.ErrNameConflict
	}

	db := getDB(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO permissions (name, description) VALUES ($1, $2)`,
		perm.Name, perm.Description)
	return mapError(err)
}

// Delete removes the permission and cascades to groups_permissions in one
// transaction, per §4.3. It does not delete groups (I2).
func (r *PermissionRepository) Delete(ctx context.Context, name string) error {
	return runCascade(ctx, r.pool, func(ctx context.Context, db DBTX) error {
		// groups_permissions.permission_name has no ON DELETE CASCADE
		// (§6.1): the core, not the database, owns the cascade. The
		// referencing rows go first so the foreign key still holds.
		if _, err := db.Exec(ctx, `DELETE FROM groups_permissions WHERE permission_name = $1`, name); err != nil {
			return mapError(err)
		}

		result, err := db.Exec(ctx, `DELETE FROM permissions WHERE name = $1`, name)
		if err != nil {
			return mapError(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *PermissionRepository) scan(row scannable) (*domain.Permission, error) {
	var p domain.Permission
	if err := row.Scan(&p.Name, &p.Description); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

const defaultLimit = 10
const maxLimit = 100

func clampPage(page storage.ListPage) (limit, offset int) {
	limit = page.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = page.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
