package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cauth/cauth/internal/auth"
	"github.com/cauth/cauth/internal/domain"
	"github.com/cauth/cauth/internal/storage"
)

// UserRepository implements storage.UserRepository.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) List(ctx context.Context, page storage.ListPage) ([]domain.User, error) {
	db := getDB(ctx, r.pool)

	order := "ASC"
	if page.Order == "desc" {
		order = "DESC"
	}
	limit, offset := clampPage(page)

	rows, err := db.Query(ctx, `
		SELECT login, password_hash, details FROM users
		ORDER BY login `+order+`
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range users {
		groups, err := r.groupsOf(ctx, db, users[i].Login)
		if err != nil {
			return nil, err
		}
		users[i].Groups = groups
	}
	return users, nil
}

func (r *UserRepository) Retrieve(ctx context.Context, login string) (*domain.User, error) {
	db := getDB(ctx, r.pool)

	u, err := r.scan(db.QueryRow(ctx, `
		SELECT login, password_hash, details FROM users WHERE login = $1`, login))
	if err != nil {
		return nil, err
	}
	groups, err := r.groupsOf(ctx, db, login)
	if err != nil {
		return nil, err
	}
	u.Groups = groups
	return u, nil
}

// Insert stores a user whose PasswordHash is already computed by C1; the
// hashing itself happens one layer up (the service, or at event-creation
// time for UserRegister), never here.
func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return domain.ErrNameConflict
	}
	details := user.Details
	if details == nil {
		details = json.RawMessage("{}")
	}

	db := getDB(ctx, r.pool)
	_, err := db.Exec(ctx, `
		INSERT INTO users (login, password_hash, details) VALUES ($1, $2, $3)`,
		user.Login, user.PasswordHash, details)
	return mapError(err)
}

// Delete removes the user, its users_groups rows, and its sessions in one
// transaction (§4.5).
func (r *UserRepository) Delete(ctx context.Context, login string) error {
	return runCascade(ctx, r.pool, func(ctx context.Context, db DBTX) error {
		if _, err := db.Exec(ctx, `DELETE FROM users_groups WHERE user_login = $1`, login); err != nil {
			return mapError(err)
		}
		if _, err := db.Exec(ctx, `DELETE FROM login_sessions WHERE user_login = $1`, login); err != nil {
			return mapError(err)
		}
		result, err := db.Exec(ctx, `DELETE FROM users WHERE login = $1`, login)
		if err != nil {
			return mapError(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// Authenticate retrieves the user and verifies password in constant time.
// NotFound and InvalidCredentials are both returned so callers can map them
// to the same external outcome and avoid user enumeration (§4.5, §7).
func (r *UserRepository) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	user, err := r.Retrieve(ctx, login)
	if err != nil {
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, domain.ErrHash
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (r *UserRepository) GrantGroup(ctx context.Context, login, group string) error {
	db := getDB(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		INSERT INTO users_groups (user_login, group_name) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, login, group)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNameError
	}
	return nil
}

func (r *UserRepository) RevokeGroup(ctx context.Context, login, group string) error {
	db := getDB(ctx, r.pool)
	tag, err := db.Exec(ctx, `
		DELETE FROM users_groups WHERE user_login = $1 AND group_name = $2`, login, group)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNameError
	}
	return nil
}

// HasPermission is true iff some group of the user carries a granted
// permission authorizing required, via the C2 matcher (§4.5).
func (r *UserRepository) HasPermission(ctx context.Context, login, required string) (bool, error) {
	db := getDB(ctx, r.pool)

	rows, err := db.Query(ctx, `
		SELECT gp.permission_name
		FROM users_groups ug
		JOIN groups_permissions gp ON gp.group_name = ug.group_name
		WHERE ug.user_login = $1`, login)
	if err != nil {
		return false, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var granted string
		if err := rows.Scan(&granted); err != nil {
			return false, mapError(err)
		}
		if domain.Matches(granted, required) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (r *UserRepository) groupsOf(ctx context.Context, db DBTX, login string) ([]domain.Group, error) {
	rows, err := db.Query(ctx, `
		SELECT g.name, g.description
		FROM groups g
		JOIN users_groups ug ON ug.group_name = g.name
		WHERE ug.user_login = $1
		ORDER BY g.name`, login)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.Name, &g.Description); err != nil {
			return nil, mapError(err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *UserRepository) scan(row scannable) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.Login, &u.PasswordHash, &u.Details); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}
