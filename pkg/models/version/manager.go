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

package version

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Manager interface {
	Create(ctx context.Context, fileId, userId sharedTypes.UUID, snapshot sharedTypes.Snapshot) (sharedTypes.Version, error)
	List(ctx context.Context, fileId sharedTypes.UUID) ([]Meta, error)
	Get(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) (Full, error)
	Delete(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) Create(ctx context.Context, fileId, userId sharedTypes.UUID, snapshot sharedTypes.Snapshot) (sharedTypes.Version, error) {
	if err := snapshot.Validate(); err != nil {
		return 0, err
	}
	var v sharedTypes.Version
	// The versions pkey on (file_id, version) turns a racing save into a
	// retryable error instead of a duplicate number.
	err := m.db.QueryRow(ctx, `
INSERT INTO versions (file_id, version, saved_by, content, created_at)
SELECT f.id,
       COALESCE(
               (SELECT MAX(v.version) FROM versions v WHERE v.file_id = f.id),
               0) + 1,
       $2,
       $3,
       transaction_timestamp()
FROM files f
WHERE f.id = $1
RETURNING version
`, fileId, userId, string(snapshot)).Scan(&v)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, &errors.NotFoundError{}
		}
		return 0, err
	}
	return v, nil
}

func (m *manager) List(ctx context.Context, fileId sharedTypes.UUID) ([]Meta, error) {
	r, err := m.db.Query(ctx, `
SELECT v.version, v.saved_by, v.created_at
FROM versions v
WHERE v.file_id = $1
ORDER BY v.version
`, fileId)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	versions := make([]Meta, 0)
	for r.Next() {
		meta := Meta{}
		if err = r.Scan(&meta.Version, &meta.SavedBy, &meta.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, meta)
	}
	if err = r.Err(); err != nil {
		return nil, err
	}
	return versions, nil
}

func (m *manager) Get(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) (Full, error) {
	full := Full{}
	var content string
	err := m.db.QueryRow(ctx, `
SELECT v.version, v.saved_by, v.content, v.created_at
FROM versions v
WHERE v.file_id = $1
  AND v.version = $2
`, fileId, v).Scan(&full.Version, &full.SavedBy, &content, &full.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return full, &errors.NotFoundError{}
		}
		return full, err
	}
	full.Snapshot = sharedTypes.Snapshot(content)
	return full, nil
}

func (m *manager) Delete(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) error {
	r, err := m.db.Exec(ctx, `
DELETE
FROM versions v
WHERE v.file_id = $1
  AND v.version = $2
`, fileId, v)
	if err != nil {
		return err
	}
	if r.RowsAffected() == 0 {
		return &errors.NotFoundError{}
	}
	return nil
}
