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

package changeLog

import (
	"context"
	"sync"
	"testing"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/redisLocker"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type fakeDurable struct {
	ops sharedTypes.Operations
}

func (f *fakeDurable) Append(_ context.Context, _ sharedTypes.UUID, op sharedTypes.Operation) error {
	if int64(op.Seq) != int64(len(f.ops))+1 {
		return &errors.SequenceConflictError{
			Expected: int64(len(f.ops)) + 1, Actual: int64(op.Seq),
		}
	}
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakeDurable) GetSince(_ context.Context, _ sharedTypes.UUID, seq sharedTypes.Sequence) (sharedTypes.Operations, error) {
	if seq >= sharedTypes.Sequence(len(f.ops)) {
		return sharedTypes.Operations{}, nil
	}
	tail := f.ops[seq:]
	ops := make(sharedTypes.Operations, len(tail))
	copy(ops, tail)
	return ops, nil
}

func (f *fakeDurable) GetHeadSeq(_ context.Context, _ sharedTypes.UUID) (sharedTypes.Sequence, error) {
	return sharedTypes.Sequence(len(f.ops)), nil
}

type fakeHot struct {
	hasCore    bool
	core       sharedTypes.Snapshot
	seq        sharedTypes.Sequence
	window     sharedTypes.Operations
	failUpdate bool
	purged     int
}

func (f *fakeHot) GetCore(_ context.Context, _ sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	if !f.hasCore {
		return nil, 0, &errors.NotFoundError{}
	}
	return f.core, f.seq, nil
}

func (f *fakeHot) UpdateDoc(_ context.Context, _ sharedTypes.UUID, core sharedTypes.Snapshot, seq sharedTypes.Sequence, appliedOps sharedTypes.Operations) error {
	if f.failUpdate {
		return errors.New("redis is down")
	}
	f.hasCore = true
	f.core = core
	f.seq = seq
	f.window = append(f.window, appliedOps...)
	return nil
}

func (f *fakeHot) GetOpsSince(_ context.Context, _ sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error) {
	if len(f.window) == 0 {
		return nil, &errors.NotFoundError{}
	}
	head := f.seq
	if since >= head {
		return sharedTypes.Operations{}, nil
	}
	first := head - sharedTypes.Sequence(len(f.window)) + 1
	if since+1 < first {
		return nil, &errors.NotFoundError{}
	}
	tail := f.window[since+1-first:]
	ops := make(sharedTypes.Operations, len(tail))
	copy(ops, tail)
	return ops, nil
}

func (f *fakeHot) PurgeDoc(_ context.Context, _ sharedTypes.UUID) error {
	f.hasCore = false
	f.core = nil
	f.seq = 0
	f.window = nil
	f.purged++
	return nil
}

type fakeLocker struct {
	mu sync.Mutex
}

func (f *fakeLocker) RunWithLock(ctx context.Context, _ sharedTypes.UUID, runner redisLocker.Runner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return runner(ctx)
}

func (f *fakeLocker) TryRunWithLock(ctx context.Context, _ sharedTypes.UUID, runner redisLocker.Runner) error {
	if !f.mu.TryLock() {
		return redisLocker.ErrLocked
	}
	defer f.mu.Unlock()
	return runner(ctx)
}

func newTestManager() (*manager, *fakeDurable, *fakeHot) {
	fd := &fakeDurable{}
	fh := &fakeHot{}
	return &manager{durable: fd, hot: fh, locker: &fakeLocker{}}, fd, fh
}

func TestAppendOperationAssignsGaplessSequences(t *testing.T) {
	ctx := context.Background()
	m, fd, fh := newTestManager()
	docId := sharedTypes.UUID{1}
	userId := sharedTypes.UUID{2}

	ops := sharedTypes.Operations{
		{Action: sharedTypes.ActionSaveAll, Content: "a\nb"},
		{Row: 1, Action: sharedTypes.ActionUpdate, Content: "b!"},
		{Row: 2, Action: sharedTypes.ActionInsert, Content: "c"},
	}
	for i, op := range ops {
		seq, err := m.AppendOperation(ctx, docId, userId, op)
		if err != nil {
			t.Fatalf("AppendOperation(%d) error = %v", i, err)
		}
		if want := sharedTypes.Sequence(i + 1); seq != want {
			t.Errorf("AppendOperation(%d) seq = %s, want %s", i, seq, want)
		}
	}
	for i, op := range fd.ops {
		if want := sharedTypes.Sequence(i + 1); op.Seq != want {
			t.Errorf("durable op %d seq = %s, want %s", i, op.Seq, want)
		}
		if op.UserId != userId {
			t.Errorf("durable op %d userId = %s", i, op.UserId)
		}
	}
	if got := string(fh.core); got != "a\nb!\nc" {
		t.Errorf("hot core = %q, want %q", got, "a\nb!\nc")
	}
	if fh.seq != 3 {
		t.Errorf("hot seq = %s, want 3", fh.seq)
	}
}

func TestAppendOperationRejectsBadOpWithoutLogging(t *testing.T) {
	ctx := context.Background()
	m, fd, _ := newTestManager()
	docId := sharedTypes.UUID{1}

	op := sharedTypes.Operation{Row: 9, Action: sharedTypes.ActionDelete}
	if _, err := m.AppendOperation(ctx, docId, docId, op); err == nil {
		t.Fatal("AppendOperation() must reject an out of bounds delete")
	}
	if len(fd.ops) != 0 {
		t.Errorf("rejected op was persisted, log = %v", fd.ops)
	}
}

func TestReadOperationsSince(t *testing.T) {
	ctx := context.Background()
	m, _, fh := newTestManager()
	docId := sharedTypes.UUID{1}

	for _, op := range (sharedTypes.Operations{
		{Action: sharedTypes.ActionSaveAll, Content: "a"},
		{Row: 1, Action: sharedTypes.ActionInsert, Content: "b"},
		{Row: 2, Action: sharedTypes.ActionInsert, Content: "c"},
	}) {
		if _, err := m.AppendOperation(ctx, docId, docId, op); err != nil {
			t.Fatalf("AppendOperation() error = %v", err)
		}
	}

	if _, err := m.ReadOperationsSince(ctx, docId, -1); err == nil {
		t.Error("ReadOperationsSince(-1) must be rejected")
	}

	assertTail := func(since sharedTypes.Sequence, wantLen int) {
		t.Helper()
		ops, err := m.ReadOperationsSince(ctx, docId, since)
		if err != nil {
			t.Fatalf("ReadOperationsSince(%s) error = %v", since, err)
		}
		if len(ops) != wantLen {
			t.Fatalf(
				"ReadOperationsSince(%s) len = %d, want %d",
				since, len(ops), wantLen,
			)
		}
		for i, op := range ops {
			if want := since + sharedTypes.Sequence(i) + 1; op.Seq != want {
				t.Errorf("op %d seq = %s, want %s", i, op.Seq, want)
			}
		}
	}
	// Served from the window.
	assertTail(0, 3)
	assertTail(2, 1)
	assertTail(3, 0)
	// Window gone, served from the durable log.
	fh.window = nil
	fh.hasCore = false
	assertTail(0, 3)
	assertTail(1, 2)
}

func TestMaterializeDocumentReplaysAndWarmsCache(t *testing.T) {
	ctx := context.Background()
	m, _, fh := newTestManager()
	docId := sharedTypes.UUID{1}

	for _, op := range (sharedTypes.Operations{
		{Action: sharedTypes.ActionSaveAll, Content: "x\ny"},
		{Row: 0, Action: sharedTypes.ActionDelete},
	}) {
		if _, err := m.AppendOperation(ctx, docId, docId, op); err != nil {
			t.Fatalf("AppendOperation() error = %v", err)
		}
	}
	// Cold cache, force a replay from the durable log.
	fh.hasCore = false
	fh.window = nil

	snapshot, seq, err := m.MaterializeDocument(ctx, docId)
	if err != nil {
		t.Fatalf("MaterializeDocument() error = %v", err)
	}
	if string(snapshot) != "y" {
		t.Errorf("snapshot = %q, want %q", string(snapshot), "y")
	}
	if seq != 2 {
		t.Errorf("seq = %s, want 2", seq)
	}
	if !fh.hasCore || string(fh.core) != "y" {
		t.Errorf("cache not warmed, core = %q", string(fh.core))
	}
}

func TestAppendOperationSurvivesHotWindowFailure(t *testing.T) {
	ctx := context.Background()
	m, fd, fh := newTestManager()
	docId := sharedTypes.UUID{1}

	fh.failUpdate = true
	seq, err := m.AppendOperation(ctx, docId, docId, sharedTypes.Operation{
		Action: sharedTypes.ActionSaveAll, Content: "kept",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %s, want 1", seq)
	}
	if len(fd.ops) != 1 {
		t.Fatalf("durable log len = %d, want 1", len(fd.ops))
	}
	if fh.purged == 0 {
		t.Error("stale hot window was not purged")
	}
}
