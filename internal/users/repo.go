package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
	PhotoURL    string
}

// EnsureUser creates the user row on first sight of a Firebase UID and
// refreshes profile fields on subsequent logins.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (Identity, error) {
	if u.FirebaseUID == "" {
		return Identity{}, fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, photo_url, updated_at)
values ($1, nullif($2,''), nullif($3,''), nullif($4,''), now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  photo_url = coalesce(excluded.photo_url, users.photo_url),
  updated_at = now()
returning id::text, role;
`
	var id Identity
	if err := r.db.QueryRow(ctx, q, u.FirebaseUID, u.Email, u.DisplayName, u.PhotoURL).Scan(&id.ID, &id.Role); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	const q = `
SELECT id::text, email, display_name, photo_url, bio, role, created_at, updated_at
FROM users
WHERE id = $1;
`
	var u User
	err := r.db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Bio, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

type UpdateProfile struct {
	DisplayName *string
	PhotoURL    *string
	Bio         *string
}

// UpdateProfile applies a partial update; nil fields keep their value.
func (r *Repo) UpdateProfile(ctx context.Context, id string, in UpdateProfile) (*User, error) {
	const q = `
UPDATE users
SET
  display_name = coalesce($2, display_name),
  photo_url    = coalesce($3, photo_url),
  bio          = coalesce($4, bio),
  updated_at   = now()
WHERE id = $1
RETURNING id::text, email, display_name, photo_url, bio, role, created_at, updated_at;
`
	var u User
	err := r.db.QueryRow(ctx, q, id, in.DisplayName, in.PhotoURL, in.Bio).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Bio, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
