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

// Package operation is the durable half of a documents log. The hot window
// lives in redis; everything here is the postgres source of truth replays and
// window misses fall back to.
package operation

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Manager interface {
	Append(ctx context.Context, fileId sharedTypes.UUID, op sharedTypes.Operation) error
	GetSince(ctx context.Context, fileId sharedTypes.UUID, seq sharedTypes.Sequence) (sharedTypes.Operations, error)
	GetHeadSeq(ctx context.Context, fileId sharedTypes.UUID) (sharedTypes.Sequence, error)
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) Append(ctx context.Context, fileId sharedTypes.UUID, op sharedTypes.Operation) error {
	_, err := m.db.Exec(ctx, `
INSERT INTO operations
(file_id, seq, row, action, content, lines_length, user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, transaction_timestamp())
`, fileId, op.Seq, op.Row, string(op.Action), op.Content, op.LinesLength,
		op.UserId)
	if err != nil {
		if e, ok := err.(*pgconn.PgError); ok &&
			e.ConstraintName == "operations_pkey" {
			// Two writers raced past the per-document lock. Must not happen.
			return &errors.SequenceConflictError{
				Expected: int64(op.Seq), Actual: int64(op.Seq),
			}
		}
		return err
	}
	return nil
}

func (m *manager) GetSince(ctx context.Context, fileId sharedTypes.UUID, seq sharedTypes.Sequence) (sharedTypes.Operations, error) {
	r, err := m.db.Query(ctx, `
SELECT o.seq, o.row, o.action, o.content, o.lines_length, o.user_id
FROM operations o
WHERE o.file_id = $1
  AND o.seq > $2
ORDER BY o.seq
`, fileId, seq)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	ops := make(sharedTypes.Operations, 0)
	for r.Next() {
		op := sharedTypes.Operation{}
		var action string
		err = r.Scan(
			&op.Seq, &op.Row, &action, &op.Content, &op.LinesLength,
			&op.UserId,
		)
		if err != nil {
			return nil, err
		}
		op.Action = sharedTypes.Action(action)
		ops = append(ops, op)
	}
	if err = r.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func (m *manager) GetHeadSeq(ctx context.Context, fileId sharedTypes.UUID) (sharedTypes.Sequence, error) {
	var seq sharedTypes.Sequence
	err := m.db.QueryRow(ctx, `
SELECT COALESCE(MAX(o.seq), 0)
FROM operations o
WHERE o.file_id = $1
`, fileId).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}
