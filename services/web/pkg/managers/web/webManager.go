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

// Package web ties accounts, file sharing and version snapshots to the
// operation log. The log owns the live text; this manager only reads it for
// uploads, saved versions and diffs.
package web

import (
	"context"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/lineDiff"
	"github.com/das7pad/codelive/pkg/models/file"
	"github.com/das7pad/codelive/pkg/models/user"
	"github.com/das7pad/codelive/pkg/models/version"
	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/changelog/pkg/managers/changeLog"
)

type Manager interface {
	RegisterUser(ctx context.Context, username, password string) (sharedTypes.UUID, error)
	LoginUser(ctx context.Context, username, password string) (sharedTypes.UUID, error)
	ListFiles(ctx context.Context, userId sharedTypes.UUID) ([]file.ListEntry, error)
	CreateFile(ctx context.Context, userId sharedTypes.UUID, name string, content sharedTypes.Snapshot) (sharedTypes.UUID, error)
	DeleteFile(ctx context.Context, fileId, userId sharedTypes.UUID) error
	GrantAccess(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID, level sharedTypes.PrivilegeLevel) (user.WithPublicInfo, error)
	RevokeAccess(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID) error
	GetAccessDetails(ctx context.Context, fileId, userId sharedTypes.UUID) (file.AccessDetails, error)
	SaveVersion(ctx context.Context, fileId, userId sharedTypes.UUID) (sharedTypes.Version, error)
	ListVersions(ctx context.Context, fileId sharedTypes.UUID) ([]version.Meta, error)
	GetVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) (version.Full, error)
	DeleteVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) error
	CompareWithVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) ([]lineDiff.RefinedEntry, error)
}

const versionCacheSize = 1024

func New(db *pgxpool.Pool, rClient redis.UniversalClient) (Manager, error) {
	clm, err := changeLog.New(db, rClient)
	if err != nil {
		return nil, errors.Tag(err, "changeLog setup")
	}
	// Saved versions are immutable, their split lines can be cached across
	// compare requests.
	cache, err := lru.New[string, sharedTypes.Lines](versionCacheSize)
	if err != nil {
		return nil, errors.Tag(err, "version cache setup")
	}
	return &manager{
		um:           user.New(db),
		fm:           file.New(db),
		vm:           version.New(db),
		clm:          clm,
		versionLines: cache,
	}, nil
}

type manager struct {
	um           user.Manager
	fm           file.Manager
	vm           version.Manager
	clm          changeLog.Manager
	versionLines *lru.Cache[string, sharedTypes.Lines]
}

func (m *manager) RegisterUser(ctx context.Context, username, password string) (sharedTypes.UUID, error) {
	return m.um.Register(ctx, username, password)
}

func (m *manager) LoginUser(ctx context.Context, username, password string) (sharedTypes.UUID, error) {
	return m.um.Login(ctx, username, password)
}

func (m *manager) ListFiles(ctx context.Context, userId sharedTypes.UUID) ([]file.ListEntry, error) {
	return m.fm.ListAccessible(ctx, userId)
}

// CreateFile creates the file and seeds the operation log with the uploaded
// text. An empty content skips the seed, the log starts from a blank line.
func (m *manager) CreateFile(ctx context.Context, userId sharedTypes.UUID, name string, content sharedTypes.Snapshot) (sharedTypes.UUID, error) {
	if err := content.Validate(); err != nil {
		return sharedTypes.UUID{}, err
	}
	fileId, err := m.fm.Create(ctx, name, userId)
	if err != nil {
		return sharedTypes.UUID{}, err
	}
	if len(content) > 0 {
		_, err = m.clm.AppendOperation(ctx, fileId, userId, sharedTypes.Operation{
			Action:  sharedTypes.ActionSaveAll,
			Content: string(content),
		})
		if err != nil {
			return sharedTypes.UUID{}, errors.Tag(err, "cannot seed doc")
		}
	}
	return fileId, nil
}

func (m *manager) DeleteFile(ctx context.Context, fileId, userId sharedTypes.UUID) error {
	if err := m.fm.Delete(ctx, fileId, userId); err != nil {
		return err
	}
	// The durable log went away with the file, drop the hot window too.
	if err := m.clm.PurgeDoc(ctx, fileId); err != nil {
		log.Printf("%s: purge doc after delete: %s", fileId, err)
	}
	return nil
}

// GrantAccess resolves the grantee before granting, so sharing with an
// unknown user id fails with a not-found instead of a constraint error,
// and returns their public info for the access panel.
func (m *manager) GrantAccess(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID, level sharedTypes.PrivilegeLevel) (user.WithPublicInfo, error) {
	u, err := m.um.GetPublicInfo(ctx, userId)
	if err != nil {
		return user.WithPublicInfo{}, errors.Tag(err, "resolve user")
	}
	if err = m.fm.Grant(ctx, fileId, ownerId, userId, level); err != nil {
		return user.WithPublicInfo{}, err
	}
	return u, nil
}

func (m *manager) RevokeAccess(ctx context.Context, fileId, ownerId, userId sharedTypes.UUID) error {
	return m.fm.Revoke(ctx, fileId, ownerId, userId)
}

func (m *manager) GetAccessDetails(ctx context.Context, fileId, userId sharedTypes.UUID) (file.AccessDetails, error) {
	level, err := m.fm.GetPrivilegeLevel(ctx, fileId, userId)
	if err != nil {
		return file.AccessDetails{}, err
	}
	return file.AccessDetails{
		PrivilegeLevel: level,
		ReadOnly:       level.IsReadOnly(),
	}, nil
}

// SaveVersion freezes the current text of the document as the next version.
func (m *manager) SaveVersion(ctx context.Context, fileId, userId sharedTypes.UUID) (sharedTypes.Version, error) {
	snapshot, _, err := m.clm.MaterializeDocument(ctx, fileId)
	if err != nil {
		return 0, errors.Tag(err, "cannot materialize doc")
	}
	return m.vm.Create(ctx, fileId, userId, snapshot)
}

func (m *manager) ListVersions(ctx context.Context, fileId sharedTypes.UUID) ([]version.Meta, error) {
	return m.vm.List(ctx, fileId)
}

func (m *manager) GetVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) (version.Full, error) {
	return m.vm.Get(ctx, fileId, v)
}

func (m *manager) DeleteVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) error {
	if err := m.vm.Delete(ctx, fileId, v); err != nil {
		return err
	}
	m.versionLines.Remove(versionCacheKey(fileId, v))
	return nil
}

func versionCacheKey(fileId sharedTypes.UUID, v sharedTypes.Version) string {
	return fileId.String() + ":" + v.String()
}

func (m *manager) getVersionLines(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) (sharedTypes.Lines, error) {
	key := versionCacheKey(fileId, v)
	if lines, ok := m.versionLines.Get(key); ok {
		return lines, nil
	}
	full, err := m.vm.Get(ctx, fileId, v)
	if err != nil {
		return nil, err
	}
	lines := full.Snapshot.ToLines()
	m.versionLines.Add(key, lines)
	return lines, nil
}

// CompareWithVersion diffs a saved version against the live text, version as
// the before side.
func (m *manager) CompareWithVersion(ctx context.Context, fileId sharedTypes.UUID, v sharedTypes.Version) ([]lineDiff.RefinedEntry, error) {
	before, err := m.getVersionLines(ctx, fileId, v)
	if err != nil {
		return nil, err
	}
	snapshot, _, err := m.clm.MaterializeDocument(ctx, fileId)
	if err != nil {
		return nil, errors.Tag(err, "cannot materialize doc")
	}
	return lineDiff.Refine(lineDiff.Compare(before, snapshot.ToLines())), nil
}
