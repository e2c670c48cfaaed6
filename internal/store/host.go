package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostrate/apiserver/types"
)

const hostColumns = `id, email, password_hash, name, phone, bio, city, avatar_key, avatar_content_type, created_at, updated_at`

// HostRepository handles persistence for hosts.
type HostRepository struct {
	db *sql.DB
}

func NewHostRepository(db *sql.DB) *HostRepository {
	return &HostRepository{db: db}
}

func (r *HostRepository) GetByID(ctx context.Context, id int) (types.Host, error) {
	const query = `
		SELECT ` + hostColumns + `
		FROM hosts
		WHERE id = $1`
	return scanHost(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail looks up a host by its login email. The caller verifies the
// password against the returned hash.
func (r *HostRepository) GetByEmail(ctx context.Context, email string) (types.Host, error) {
	const query = `
		SELECT ` + hostColumns + `
		FROM hosts
		WHERE email = $1`
	return scanHost(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new host and returns it with the assigned id.
// Email uniqueness is enforced by the hosts_email_key index.
func (r *HostRepository) Create(ctx context.Context, host types.Host) (types.Host, error) {
	now := time.Now().UTC()
	host.CreatedAt = now
	host.UpdatedAt = &now

	const query = `
		INSERT INTO hosts (email, password_hash, name, phone, bio, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		host.Email,
		host.PasswordHash,
		host.Name,
		host.Phone,
		host.Bio,
		host.City,
		host.CreatedAt,
		now,
	).Scan(&host.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Host{}, ErrDuplicate
		}
		return types.Host{}, fmt.Errorf("insert host: %w", err)
	}
	return host, nil
}

// Update merges the set fields of patch into the stored host in one
// statement. Unset fields keep their stored value.
func (r *HostRepository) Update(ctx context.Context, id int, patch types.HostPatch) (types.Host, error) {
	const query = `
		UPDATE hosts
		SET name = COALESCE($1, name),
			phone = COALESCE($2, phone),
			bio = COALESCE($3, bio),
			city = COALESCE($4, city),
			updated_at = $5
		WHERE id = $6
		RETURNING ` + hostColumns
	return scanHost(r.db.QueryRowContext(
		ctx,
		query,
		nullable(patch.Name),
		nullable(patch.Phone),
		nullable(patch.Bio),
		nullable(patch.City),
		time.Now().UTC(),
		id,
	))
}

// SetAvatar records a new avatar object for the host and returns the key
// it replaced, if any.
func (r *HostRepository) SetAvatar(ctx context.Context, id int, key, contentType string) (string, error) {
	const query = `
		WITH prev AS (
			SELECT id, avatar_key FROM hosts WHERE id = $4 FOR UPDATE
		)
		UPDATE hosts AS h
		SET avatar_key = $1,
			avatar_content_type = $2,
			updated_at = $3
		FROM prev
		WHERE h.id = prev.id
		RETURNING prev.avatar_key`
	var previous string
	err := r.db.QueryRowContext(ctx, query, key, contentType, time.Now().UTC(), id).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("set avatar: %w", err)
	}
	return previous, nil
}

// Delete removes the host and returns its last stored state.
func (r *HostRepository) Delete(ctx context.Context, id int) (types.Host, error) {
	const query = `DELETE FROM hosts WHERE id = $1 RETURNING ` + hostColumns
	return scanHost(r.db.QueryRowContext(ctx, query, id))
}

func scanHost(row *sql.Row) (types.Host, error) {
	var host types.Host
	err := row.Scan(
		&host.ID,
		&host.Email,
		&host.PasswordHash,
		&host.Name,
		&host.Phone,
		&host.Bio,
		&host.City,
		&host.AvatarKey,
		&host.AvatarContentType,
		&host.CreatedAt,
		&host.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Host{}, ErrNotFound
		}
		return types.Host{}, err
	}
	host.HasAvatar = host.AvatarKey != ""
	return host, nil
}

func nullable(o types.Optional[string]) any {
	if !o.Set {
		return nil
	}
	return o.Value
}
