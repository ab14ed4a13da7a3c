package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// GroupRepository implements storage.GroupRepository.
type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) List(ctx context.Context, page storage.ListPage) ([]domain.Group, error) {
	db := getDB(ctx, r.pool)

	order := "ASC"
	if page.Order == "desc" {
		order = "DESC"
	}
	limit, offset := clampPage(page)

	rows, err := db.Query(ctx, `
		SELECT name, description FROM groups
		ORDER BY name `+order+`
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range groups {
		perms, err := r.permissionsOf(ctx, db, groups[i].Name)
		if err != nil {
			return nil, err
		}
		groups[i].Permissions = perms
	}
	return groups, nil
}

func (r *GroupRepository) Retrieve(ctx context.Context, name string) (*domain.Group, error) {
	db := getDB(ctx, r.pool)

	g, err := r.scan(db.QueryRow(ctx, `SELECT name, description FROM groups WHERE name = $1`, name))
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsOf(ctx, db, name)
	if err != nil {
		return nil, err
	}
	g.Permissions = perms
	return g, nil
}

// Insert stores the group and its initial permission set atomically: if any
// referenced permission is missing, the foreign key on groups_permissions
// fails the whole transaction and no row is created (§4.4).
func (r *GroupRepository) Insert(ctx context.Context, group *domain.Group) error {
	if err := group.Validate(); err != nil {
		return domain.ErrNameConflict
	}

	return runCascade(ctx, r.pool, func(ctx context.Context, db DBTX) error {
		if _, err := db.Exec(ctx, `INSERT INTO groups (name, description) VALUES ($1, $2)`,
			group.Name, group.Description); err != nil {
			return mapError(err)
		}

		for _, perm := range group.Permissions {
			if _, err := db.Exec(ctx, `
				INSERT INTO groups_permissions (group_name, permission_name) VALUES ($1, $2)`,
				group.Name, perm); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// Delete removes the group, its users_groups rows, and its
// groups_permissions rows in one transaction (§4.4). Users are not deleted.
func (r *GroupRepository) Delete(ctx context.Context, name string) error {
	return runCascade(ctx, r.pool, func(ctx context.Context, db DBTX) error {
		if _, err := db.Exec(ctx, `DELETE FROM users_groups WHERE group_name = $1`, name); err != nil {
			return mapError(err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM groups_permissions WHERE group_name = $1`, name); err != nil {
			return mapError(err)
		}
		result, err := db.Exec(ctx, `DELETE FROM groups WHERE name = $1`, name)
		if err != nil {
			return mapError(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *GroupRepository) GrantPermission(ctx context.Context, group, permission string) error {
	db := getDB(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		INSERT INTO groups_permissions (group_name, permission_name) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, group, permission)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNameError
	}
	return nil
}

func (r *GroupRepository) RevokePermission(ctx context.Context, group, permission string) error {
	db := getDB(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		DELETE FROM groups_permissions WHERE group_name = $1 AND permission_name = $2`,
		group, permission)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNameError
	}
	return nil
}

func (r *GroupRepository) permissionsOf(ctx context.Context, db DBTX, name string) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT permission_name FROM groups_permissions WHERE group_name = $1 ORDER BY permission_name`, name)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, mapError(err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *GroupRepository) scan(row scannable) (*domain.Group, error) {
	var g domain.Group
	if err := row.Scan(&g.Name, &g.Description); err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}
