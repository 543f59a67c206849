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

// Package changeLog is the authoritative operation log. Appends for one
// document run inside a per-document redis lock: the next sequence is
// assigned, the operation validated against the current text, written to
// postgres and finally mirrored into the redis hot window. Reads prefer the
// window and fall back to postgres.
package changeLog

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/models/operation"
	"github.com/das7pad/codelive/pkg/redisLocker"
	"github.com/das7pad/codelive/pkg/sharedTypes"

	"github.com/das7pad/codelive/services/changelog/pkg/lineEdit"
	"github.com/das7pad/codelive/services/changelog/pkg/managers/changeLog/internal/logRedisManager"
)

type Manager interface {
	AppendOperation(ctx context.Context, docId, userId sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error)
	ReadOperationsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error)
	MaterializeDocument(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error)
	PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool, rClient redis.UniversalClient) (Manager, error) {
	locker, err := redisLocker.New(rClient, "ChangeLogLock:")
	if err != nil {
		return nil, err
	}
	return &manager{
		durable: operation.New(db),
		hot:     logRedisManager.New(rClient),
		locker:  locker,
	}, nil
}

type manager struct {
	durable operation.Manager
	hot     logRedisManager.Manager
	locker  redisLocker.Locker
}

// getCore returns the current text and head sequence, preferring the redis
// cache and rebuilding from postgres on a miss.
func (m *manager) getCore(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Lines, sharedTypes.Sequence, error) {
	core, seq, err := m.hot.GetCore(ctx, docId)
	if err == nil {
		return core.ToLines(), seq, nil
	}
	if !logRedisManager.IsWindowMiss(err) {
		return nil, 0, err
	}
	ops, err := m.durable.GetSince(ctx, docId, 0)
	if err != nil {
		return nil, 0, errors.Tag(err, "cannot get ops for replay")
	}
	lines, err := lineEdit.Replay(lineEdit.Empty(), ops)
	if err != nil {
		return nil, 0, err
	}
	seq = 0
	if len(ops) > 0 {
		seq = ops[len(ops)-1].Seq
	}
	return lines, seq, nil
}

func (m *manager) AppendOperation(ctx context.Context, docId, userId sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error) {
	if err := op.Validate(); err != nil {
		return 0, err
	}
	var assigned sharedTypes.Sequence
	err := m.locker.RunWithLock(ctx, docId, func(ctx context.Context) error {
		lines, seq, err := m.getCore(ctx, docId)
		if err != nil {
			return err
		}
		op.Seq = seq + 1
		op.UserId = userId
		next, err := lineEdit.Apply(lines, op)
		if err != nil {
			// Rejected before logging, the log stays replayable.
			return err
		}
		if err = m.durable.Append(ctx, docId, op); err != nil {
			return errors.Tag(err, "cannot persist op")
		}
		assigned = op.Seq
		err = m.hot.UpdateDoc(
			ctx, docId, next.ToSnapshot(), op.Seq,
			sharedTypes.Operations{op},
		)
		if err != nil {
			// The op is durable; drop the now stale window instead of
			// failing the append.
			log.Printf("%s: update hot window: %s", docId, err)
			if err2 := m.hot.PurgeDoc(ctx, docId); err2 != nil {
				log.Printf("%s: purge hot window: %s", docId, err2)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

func (m *manager) ReadOperationsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error) {
	if since < 0 {
		return nil, &errors.ValidationError{Msg: "since must be non-negative"}
	}
	ops, err := m.hot.GetOpsSince(ctx, docId, since)
	if err == nil {
		return ops, nil
	}
	if !logRedisManager.IsWindowMiss(err) {
		return nil, err
	}
	return m.durable.GetSince(ctx, docId, since)
}

func (m *manager) MaterializeDocument(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	core, seq, err := m.hot.GetCore(ctx, docId)
	if err == nil {
		return core, seq, nil
	}
	if !logRedisManager.IsWindowMiss(err) {
		return nil, 0, err
	}
	lines, seq, err := m.getCore(ctx, docId)
	if err != nil {
		return nil, 0, err
	}
	snapshot := lines.ToSnapshot()
	m.warmCache(ctx, docId, snapshot, seq)
	return snapshot, seq, nil
}

// warmCache stores a freshly replayed core, but only while holding the
// per-document lock, else a concurrent append could be overwritten with a
// stale text. Contended or failing warm-ups are skipped, the next append
// rebuilds the cache anyway.
func (m *manager) warmCache(ctx context.Context, docId sharedTypes.UUID, snapshot sharedTypes.Snapshot, seq sharedTypes.Sequence) {
	err := m.locker.TryRunWithLock(ctx, docId, func(ctx context.Context) error {
		if _, _, err := m.hot.GetCore(ctx, docId); err == nil {
			return nil
		}
		head, err := m.durable.GetHeadSeq(ctx, docId)
		if err != nil {
			return err
		}
		if head != seq {
			return nil
		}
		return m.hot.UpdateDoc(ctx, docId, snapshot, seq, nil)
	})
	if err != nil && err != redisLocker.ErrLocked {
		log.Printf("%s: warm doc cache: %s", docId, err)
	}
}

func (m *manager) PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error {
	return m.hot.PurgeDoc(ctx, docId)
}
