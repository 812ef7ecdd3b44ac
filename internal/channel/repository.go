package channel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumen-commerce/lumen/internal/shared"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for channels.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const channelColumns = "id, code, token, is_default, created_at, updated_at"

// FindByID returns the channel with the given id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*Channel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	return scanChannel(row, strconv.FormatInt(id, 10))
}

// FindByCode returns the channel with the given code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*Channel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE code = $1`, code)
	return scanChannel(row, code)
}

// FindByToken returns the channel with the given access token.
func (r *Repository) FindByToken(ctx context.Context, token string) (*Channel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE token = $1`, token)
	return scanChannel(row, "by token")
}

// FindDefault returns the installation's default channel.
func (r *Repository) FindDefault(ctx context.Context) (*Channel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE is_default`)
	return scanChannel(row, "default")
}

// Save inserts a new channel or updates an existing one.
func (r *Repository) Save(ctx context.Context, ch *Channel) (*Channel, error) {
	var row pgx.Row
	if ch.ID == 0 {
		row = r.pool.QueryRow(ctx,
			`INSERT INTO channels (code, token, is_default)
			 VALUES ($1, $2, $3)
			 RETURNING `+channelColumns,
			ch.Code, ch.Token, ch.IsDefault)
	} else {
		row = r.pool.QueryRow(ctx,
			`UPDATE channels SET code = $2, token = $3, is_default = $4, updated_at = now()
			 WHERE id = $1
			 RETURNING `+channelColumns,
			ch.ID, ch.Code, ch.Token, ch.IsDefault)
	}
	saved, err := scanChannel(row, ch.Code)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("channel %q: %w", ch.Code, shared.ErrDuplicate)
		}
		return nil, err
	}
	return saved, nil
}

// AssignRole adds the channel to a role's channel set. The insert is
// idempotent; assigning an already assigned pair is a no-op.
func (r *Repository) AssignRole(ctx context.Context, roleID, channelID int64) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO role_channels (role_id, channel_id)
		 SELECT r.id, c.id FROM roles r, channels c WHERE r.id = $1 AND c.id = $2
		 ON CONFLICT (role_id, channel_id) DO NOTHING`,
		roleID, channelID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the pair already exists or one side is missing;
		// distinguish so missing entities surface as not found.
		var exists bool
		err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM role_channels WHERE role_id = $1 AND channel_id = $2)`,
			roleID, channelID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return r.missingSide(ctx, roleID, channelID)
		}
	}
	return nil
}

func (r *Repository) missingSide(ctx context.Context, roleID, channelID int64) error {
	var roleExists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&roleExists); err != nil {
		return err
	}
	if !roleExists {
		return &shared.NotFoundError{Entity: "role", ID: strconv.FormatInt(roleID, 10)}
	}
	return &shared.NotFoundError{Entity: "channel", ID: strconv.FormatInt(channelID, 10)}
}

func scanChannel(row pgx.Row, ref string) (*Channel, error) {
	var ch Channel
	err := row.Scan(&ch.ID, &ch.Code, &ch.Token, &ch.IsDefault, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Entity: "channel", ID: ref}
		}
		return nil, err
	}
	return &ch, nil
}
