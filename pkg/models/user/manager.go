// Golang port of CodeLive
// Copyright (C) 2025-2026 Jakob Ackermann <das7pad@outlook.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package user

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Manager interface {
	Register(ctx context.Context, username, password string) (sharedTypes.UUID, error)
	Login(ctx context.Context, username, password string) (sharedTypes.UUID, error)
	GetPublicInfo(ctx context.Context, userId sharedTypes.UUID) (WithPublicInfo, error)
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

const bcryptCost = 10

func (m *manager) Register(ctx context.Context, username, password string) (sharedTypes.UUID, error) {
	if err := ValidateUsername(username); err != nil {
		return sharedTypes.UUID{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return sharedTypes.UUID{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return sharedTypes.UUID{}, errors.Tag(err, "hash password")
	}
	userId, err := sharedTypes.GenerateUUID()
	if err != nil {
		return sharedTypes.UUID{}, err
	}
	_, err = m.db.Exec(ctx, `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1, $2, $3, transaction_timestamp())
`, userId, username, string(hash))
	if err != nil {
		if e, ok := err.(*pgconn.PgError); ok &&
			e.ConstraintName == "users_username_key" {
			return sharedTypes.UUID{}, &errors.UnprocessableEntityError{
				Msg: "username already taken",
			}
		}
		return sharedTypes.UUID{}, err
	}
	return userId, nil
}

func (m *manager) Login(ctx context.Context, username, password string) (sharedTypes.UUID, error) {
	if err := ValidateUsername(username); err != nil {
		return sharedTypes.UUID{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return sharedTypes.UUID{}, err
	}
	var userId sharedTypes.UUID
	var hash string
	err := m.db.QueryRow(ctx, `
SELECT id, password_hash
FROM users
WHERE username = $1
`, username).Scan(&userId, &hash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return sharedTypes.UUID{}, &errors.NotAuthorizedError{}
		}
		return sharedTypes.UUID{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return sharedTypes.UUID{}, &errors.NotAuthorizedError{}
	}
	return userId, nil
}

func (m *manager) GetPublicInfo(ctx context.Context, userId sharedTypes.UUID) (WithPublicInfo, error) {
	u := WithPublicInfo{}
	err := m.db.QueryRow(ctx, `
SELECT id, username
FROM users
WHERE id = $1
`, userId).Scan(&u.Id, &u.Username)
	if err != nil {
		if err == pgx.ErrNoRows {
			return u, &errors.NotFoundError{}
		}
		return u, err
	}
	return u, nil
}
