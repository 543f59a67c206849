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

package file

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Manager interface {
	Create(ctx context.Context, name string, ownerId sharedTypes.UUID) (sharedTypes.UUID, error)
	Delete(ctx context.Context, fileId, userId sharedTypes.UUID) error
	ListAccessible(ctx context.Context, userId sharedTypes.UUID) ([]ListEntry, error)
	GetPrivilegeLevel(ctx context.Context, fileId, userId sharedTypes.UUID) (sharedTypes.PrivilegeLevel, error)
	Grant(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID, level sharedTypes.PrivilegeLevel) error
	Revoke(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) Create(ctx context.Context, name string, ownerId sharedTypes.UUID) (sharedTypes.UUID, error) {
	if err := ValidateName(name); err != nil {
		return sharedTypes.UUID{}, err
	}
	fileId, err := sharedTypes.GenerateUUID()
	if err != nil {
		return sharedTypes.UUID{}, err
	}
	err = pgx.BeginFunc(ctx, m.db, func(tx pgx.Tx) error {
		_, err2 := tx.Exec(ctx, `
INSERT INTO files (id, name, owner_id, created_at)
VALUES ($1, $2, $3, transaction_timestamp())
`, fileId, name, ownerId)
		if err2 != nil {
			return err2
		}
		_, err2 = tx.Exec(ctx, `
INSERT INTO file_grants (file_id, user_id, privilege_level)
VALUES ($1, $2, 'owner')
`, fileId, ownerId)
		return err2
	})
	if err != nil {
		return sharedTypes.UUID{}, err
	}
	return fileId, nil
}

// Delete removes the file and, via ON DELETE CASCADE, its grants, versions
// and durable operation log. Owner only.
func (m *manager) Delete(ctx context.Context, fileId, userId sharedTypes.UUID) error {
	r, err := m.db.Exec(ctx, `
DELETE
FROM files f
WHERE f.id = $1
  AND f.owner_id = $2
`, fileId, userId)
	if err != nil {
		return err
	}
	if r.RowsAffected() == 0 {
		return &errors.NotAuthorizedError{}
	}
	return nil
}

func (m *manager) ListAccessible(ctx context.Context, userId sharedTypes.UUID) ([]ListEntry, error) {
	r, err := m.db.Query(ctx, `
SELECT f.id, f.name, g.privilege_level, f.created_at
FROM files f
         INNER JOIN file_grants g ON f.id = g.file_id
WHERE g.user_id = $1
ORDER BY f.created_at
`, userId)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	files := make([]ListEntry, 0)
	for r.Next() {
		entry := ListEntry{}
		err = r.Scan(
			&entry.Id, &entry.Name, &entry.PrivilegeLevel, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		files = append(files, entry)
	}
	if err = r.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func (m *manager) GetPrivilegeLevel(ctx context.Context, fileId, userId sharedTypes.UUID) (sharedTypes.PrivilegeLevel, error) {
	var level sharedTypes.PrivilegeLevel
	err := m.db.QueryRow(ctx, `
SELECT g.privilege_level
FROM file_grants g
WHERE g.file_id = $1
  AND g.user_id = $2
`, fileId, userId).Scan(&level)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", &errors.NotAuthorizedError{}
		}
		return "", err
	}
	return level, nil
}

func (m *manager) Grant(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID, level sharedTypes.PrivilegeLevel) error {
	if err := level.Validate(); err != nil {
		return err
	}
	if level == sharedTypes.PrivilegeLevelOwner {
		return &errors.ValidationError{Msg: "cannot grant ownership"}
	}
	if ownerId == userId {
		return &errors.ValidationError{Msg: "cannot change own access"}
	}
	r, err := m.db.Exec(ctx, `
INSERT INTO file_grants (file_id, user_id, privilege_level)
SELECT f.id, $3, $4
FROM files f
WHERE f.id = $1
  AND f.owner_id = $2
ON CONFLICT (file_id, user_id)
    DO UPDATE SET privilege_level = EXCLUDED.privilege_level
`, fileId, ownerId, userId, level)
	if err != nil {
		return err
	}
	if r.RowsAffected() == 0 {
		return &errors.NotAuthorizedError{}
	}
	return nil
}

func (m *manager) Revoke(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID) error {
	if ownerId == userId {
		return &errors.ValidationError{Msg: "cannot change own access"}
	}
	r, err := m.db.Exec(ctx, `
DELETE
FROM file_grants g
WHERE g.file_id = $1
  AND g.user_id = $3
  AND g.privilege_level != 'owner'
  AND EXISTS(SELECT 1
             FROM files f
             WHERE f.id = $1
               AND f.owner_id = $2)
`, fileId, ownerId, userId)
	if err != nil {
		return err
	}
	if r.RowsAffected() == 0 {
		return &errors.NotFoundError{}
	}
	return nil
}
