package user

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/role"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// RepositoryPort defines read access to users for authorization.
type RepositoryPort interface {
	FindWithRoles(ctx context.Context, id int64) (*User, error)
}

// Repository provides PostgreSQL backed read access.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindWithRoles loads a user with roles and each role's channels eagerly
// populated, which is exactly the shape the authorization evaluator needs.
func (r *Repository) FindWithRoles(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, identifier, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Identifier, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "user", ID: strconv.FormatInt(id, 10)}
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.code, r.description, r.permissions, r.created_at, r.updated_at
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY r.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roleIndex := make(map[int64]int)
	for rows.Next() {
		var rl role.Role
		var perms []string
		if err := rows.Scan(&rl.ID, &rl.Code, &rl.Description, &perms, &rl.CreatedAt, &rl.UpdatedAt); err != nil {
			return nil, err
		}
		rl.Permissions = make([]permission.Permission, len(perms))
		for i, p := range perms {
			rl.Permissions[i] = permission.Permission(p)
		}
		roleIndex[rl.ID] = len(u.Roles)
		u.Roles = append(u.Roles, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(u.Roles) == 0 {
		return &u, nil
	}

	ids := make([]int64, 0, len(u.Roles))
	for roleID := range roleIndex {
		ids = append(ids, roleID)
	}
	chRows, err := r.pool.Query(ctx,
		`SELECT rc.role_id, c.id, c.code, c.token, c.is_default, c.created_at, c.updated_at
		 FROM role_channels rc
		 JOIN channels c ON c.id = rc.channel_id
		 WHERE rc.role_id = ANY($1)
		 ORDER BY c.id`, ids)
	if err != nil {
		return nil, err
	}
	defer chRows.Close()

	for chRows.Next() {
		var roleID int64
		var ch channel.Channel
		if err := chRows.Scan(&roleID, &ch.ID, &ch.Code, &ch.Token, &ch.IsDefault, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		i := roleIndex[roleID]
		u.Roles[i].Channels = append(u.Roles[i].Channels, ch)
	}
	return &u, chRows.Err()
}
