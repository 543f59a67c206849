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

// Package logRedisManager keeps the hot tail of a documents operation log in
// redis: the head sequence, a trimmed window of recent operations and the
// cached materialized text. Postgres remains the source of truth; everything
// here may vanish and gets rebuilt from there.
package logRedisManager

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Manager interface {
	GetCore(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error)
	UpdateDoc(ctx context.Context, docId sharedTypes.UUID, core sharedTypes.Snapshot, seq sharedTypes.Sequence, appliedOps sharedTypes.Operations) error
	GetOpsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error)
	PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error
}

func New(rClient redis.UniversalClient) Manager {
	return &manager{rClient: rClient}
}

const (
	DocOpsTTL       = 60 * time.Minute
	DocCoreTTL      = 24 * time.Hour
	DocOpsMaxLength = 100
)

var errWindowMiss = &errors.NotFoundError{}

// IsWindowMiss reports whether the redis window cannot serve the request and
// the caller should fall back to the durable log.
func IsWindowMiss(err error) bool {
	return errors.IsNotFoundError(err)
}

type manager struct {
	rClient redis.UniversalClient
}

func getDocOpsKey(docId sharedTypes.UUID) string {
	return "DocOps:{" + docId.String() + "}"
}

func getDocSeqKey(docId sharedTypes.UUID) string {
	return "DocSeq:{" + docId.String() + "}"
}

func getDocCoreKey(docId sharedTypes.UUID) string {
	return "DocCore:{" + docId.String() + "}"
}

func (m *manager) GetCore(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	res := m.rClient.MGet(ctx, getDocCoreKey(docId), getDocSeqKey(docId))
	if err := res.Err(); err != nil {
		return nil, 0, errors.Tag(err, "cannot get doc core from redis")
	}
	results := res.Val()
	if len(results) != 2 {
		return nil, 0, errors.New("too few values returned from redis")
	}
	core, coreOk := results[0].(string)
	rawSeq, seqOk := results[1].(string)
	if !coreOk || !seqOk {
		return nil, 0, errWindowMiss
	}
	var seq sharedTypes.Sequence
	if err := seq.ParseIfSet(rawSeq); err != nil {
		return nil, 0, errors.Tag(err, "cannot parse doc seq")
	}
	return sharedTypes.Snapshot(core), seq, nil
}

func (m *manager) UpdateDoc(ctx context.Context, docId sharedTypes.UUID, core sharedTypes.Snapshot, seq sharedTypes.Sequence, appliedOps sharedTypes.Operations) error {
	opsBlobs := make([]interface{}, len(appliedOps))
	for i, op := range appliedOps {
		blob, err := json.Marshal(op)
		if err != nil {
			return errors.Tag(err, "cannot serialize applied op")
		}
		opsBlobs[i] = blob
	}
	_, err := m.rClient.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.MSet(ctx, map[string]interface{}{
			getDocCoreKey(docId): string(core),
			getDocSeqKey(docId):  seq.String(),
		})
		p.Expire(ctx, getDocCoreKey(docId), DocCoreTTL)
		p.Expire(ctx, getDocSeqKey(docId), DocCoreTTL)
		p.LTrim(ctx, getDocOpsKey(docId), -DocOpsMaxLength, -1)
		if len(opsBlobs) > 0 {
			p.RPush(ctx, getDocOpsKey(docId), opsBlobs...)
			p.Expire(ctx, getDocOpsKey(docId), DocOpsTTL)
		}
		return nil
	})
	if err != nil {
		return errors.Tag(err, "cannot update doc in redis")
	}
	return nil
}

var scriptGetOpsSince = redis.NewScript(`
local length = redis.call("LLEN", KEYS[1])
if length == 0 then error("codelive: empty ops window") end

local head = tonumber(redis.call("GET", KEYS[2]), 10)
if head == nil then error("codelive: head seq not found") end

local since = tonumber(ARGV[1], 10)
if since >= head then return {} end

local first_seq_in_window = head - length + 1
if since + 1 < first_seq_in_window then error("codelive: too old start") end

local start = since + 1 - first_seq_in_window
return redis.call("LRANGE", KEYS[1], start, -1)
`)

func (m *manager) GetOpsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error) {
	keys := []string{
		getDocOpsKey(docId),
		getDocSeqKey(docId),
	}
	res, err := scriptGetOpsSince.Run(
		ctx, m.rClient, keys, since.String(),
	).Result()
	if err != nil {
		if strings.Contains(err.Error(), "codelive:") {
			return nil, errWindowMiss
		}
		return nil, errors.Tag(err, "cannot get ops from redis")
	}
	stage0, isArr := res.([]interface{})
	if !isArr {
		return nil, errors.New("unexpected ops response from redis")
	}
	ops := make(sharedTypes.Operations, len(stage0))
	for i, item := range stage0 {
		blob, isString := item.(string)
		if !isString {
			return nil, errors.New("op not received as string")
		}
		if err = json.Unmarshal([]byte(blob), &ops[i]); err != nil {
			return nil, errors.Tag(err, "cannot parse op")
		}
		if ops[i].Seq != since+sharedTypes.Sequence(i)+1 {
			// The window was trimmed or rewritten underneath the script.
			return nil, errWindowMiss
		}
	}
	return ops, nil
}

func (m *manager) PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error {
	err := m.rClient.Del(
		ctx,
		getDocOpsKey(docId),
		getDocSeqKey(docId),
		getDocCoreKey(docId),
	).Err()
	if err != nil {
		return errors.Tag(err, "cannot purge doc from redis")
	}
	return nil
}
