package role

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/permission"
	"github.com/lumen-commerce/lumen/internal/platform/db"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// ListFilters narrows and orders role listings.
type ListFilters struct {
	// Code filters by case-insensitive substring match when non-empty.
	Code    string
	SortBy  string
	SortDir string
	Page    int
	PerPage int
}

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]Role, int, error)
	FindByID(ctx context.Context, id int64) (*Role, error)
	FindByCode(ctx context.Context, code string) (*Role, error)
	Save(ctx context.Context, r *Role) (*Role, error)
}

// Repository provides PostgreSQL backed persistence. Every read returns
// roles with their channel relations populated.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var sortColumns = map[string]string{
	"id":         "id",
	"code":       "code",
	"created_at": "created_at",
}

// List returns roles matching the filters plus the total count ignoring
// pagination.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]Role, int, error) {
	page := shared.NewPagination(filters.Page, filters.PerPage, 0)

	where := ""
	args := []any{}
	if filters.Code != "" {
		where = " WHERE code ILIKE '%' || $1 || '%'"
		args = append(args, filters.Code)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM roles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortBy, ok := sortColumns[filters.SortBy]
	if !ok {
		sortBy = "id"
	}
	sortDir := "ASC"
	if filters.SortDir == "desc" {
		sortDir = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT id, code, description, permissions, created_at, updated_at
		 FROM roles%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		where, sortBy, sortDir, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadChannels(ctx, roles); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// FindByID fetches one role with channels populated.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Role, error) {
	return r.findOne(ctx, `WHERE id = $1`, id, strconv.FormatInt(id, 10))
}

// FindByCode fetches one role by its unique code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Role, error) {
	return r.findOne(ctx, `WHERE code = $1`, code, code)
}

func (r *Repository) findOne(ctx context.Context, where string, arg any, ref string) (*Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, code, description, permissions, created_at, updated_at FROM roles `+where, arg)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "role", ID: ref}
		}
		return nil, err
	}
	roles := []Role{*role}
	if err := r.loadChannels(ctx, roles); err != nil {
		return nil, err
	}
	return &roles[0], nil
}

// Save inserts (ID zero) or updates a role and replaces its channel
// bindings in one transaction, then re-reads the canonical row. A code
// uniqueness violation surfaces as shared.ErrDuplicate.
func (r *Repository) Save(ctx context.Context, role *Role) (*Role, error) {
	id := role.ID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		perms := permission.Strings(role.Permissions)
		if id == 0 {
			err := tx.QueryRow(ctx,
				`INSERT INTO roles (code, description, permissions)
				 VALUES ($1, $2, $3) RETURNING id`,
				role.Code, role.Description, perms).Scan(&id)
			if err != nil {
				return err
			}
		} else {
			tag, err := tx.Exec(ctx,
				`UPDATE roles SET code = $2, description = $3, permissions = $4, updated_at = now()
				 WHERE id = $1`,
				id, role.Code, role.Description, perms)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return &shared.NotFoundError{Entity: "role", ID: strconv.FormatInt(id, 10)}
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_channels WHERE role_id = $1`, id); err != nil {
			return err
		}
		for _, ch := range role.Channels {
			_, err := tx.Exec(ctx,
				`INSERT INTO role_channels (role_id, channel_id) VALUES ($1, $2)`,
				id, ch.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("role %q: %w", role.Code, shared.ErrDuplicate)
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// loadChannels populates the channel relation for each role in place.
func (r *Repository) loadChannels(ctx context.Context, roles []Role) error {
	if len(roles) == 0 {
		return nil
	}
	ids := make([]int64, len(roles))
	index := make(map[int64]int, len(roles))
	for i := range roles {
		ids[i] = roles[i].ID
		index[roles[i].ID] = i
		roles[i].Channels = nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT rc.role_id, c.id, c.code, c.token, c.is_default, c.created_at, c.updated_at
		 FROM role_channels rc
		 JOIN channels c ON c.id = rc.channel_id
		 WHERE rc.role_id = ANY($1)
		 ORDER BY c.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var roleID int64
		var ch channel.Channel
		if err := rows.Scan(&roleID, &ch.ID, &ch.Code, &ch.Token, &ch.IsDefault, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return err
		}
		i := index[roleID]
		roles[i].Channels = append(roles[i].Channels, ch)
	}
	return rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	var perms []string
	if err := row.Scan(&role.ID, &role.Code, &role.Description, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	role.Permissions = make([]permission.Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = permission.Permission(p)
	}
	return &role, nil
}
