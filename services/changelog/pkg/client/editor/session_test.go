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

package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

func waitForSnapshot(t *testing.T, b *MemoryBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if string(b.Snapshot()) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("buffer = %q, want %q", string(b.Snapshot()), want)
}

func TestSessionPicksUpRemoteEdits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flog := newFakeLog()
	_, err := flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Action: sharedTypes.ActionSaveAll, Content: "one\ntwo",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}

	buffer := NewMemoryBuffer(sharedTypes.Snapshot(""))
	s := NewSession(SessionOptions{
		UserId:       sharedTypes.UUID{1},
		Transport:    flog,
		Buffer:       buffer,
		PollInterval: time.Millisecond,
	})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitForSnapshot(t, buffer, "one\ntwo")

	_, err = flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Row: 2, Action: sharedTypes.ActionInsert, Content: "three",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}
	waitForSnapshot(t, buffer, "one\ntwo\nthree")

	cancel()
	if err = <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if s.Reconciler().LastSeen() != 2 {
		t.Errorf("lastSeen = %s, want 2", s.Reconciler().LastSeen())
	}
}

func TestSessionConvergesTwoClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flog := newFakeLog()

	bufA := NewMemoryBuffer(sharedTypes.Snapshot(""))
	bufB := NewMemoryBuffer(sharedTypes.Snapshot(""))
	a := NewSession(SessionOptions{
		UserId:    sharedTypes.UUID{0xa},
		Transport: flog, Buffer: bufA, PollInterval: time.Millisecond,
	})
	b := NewSession(SessionOptions{
		UserId:    sharedTypes.UUID{0xb},
		Transport: flog, Buffer: bufB, PollInterval: time.Millisecond,
	})
	doneA := make(chan error, 1)
	doneB := make(chan error, 1)
	go func() { doneA <- a.Run(ctx) }()
	go func() { doneB <- b.Run(ctx) }()

	bufA.SetLines(sharedTypes.Lines{"from a"})
	err := a.Reconciler().LocalChange(ctx, ChangeEvent{
		StartRow: 0, EndRow: 0, Text: "from a",
	})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	waitForSnapshot(t, bufB, "from a")

	bufB.SetLines(sharedTypes.Lines{"from a", "from b"})
	err = b.Reconciler().LocalChange(ctx, ChangeEvent{
		StartRow: 1, EndRow: 1, Paste: true, Text: "from b",
	})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	waitForSnapshot(t, bufA, "from a\nfrom b")
	waitForSnapshot(t, bufB, "from a\nfrom b")

	cancel()
	<-doneA
	<-doneB
	if got := flog.snapshot(); got != "from a\nfrom b" {
		t.Errorf("server = %q", got)
	}
}

func TestSessionReloadRecoversDivergence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flog := newFakeLog()
	_, err := flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Action: sharedTypes.ActionSaveAll, Content: "a\nb\nc",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}

	buffer := NewMemoryBuffer(sharedTypes.Snapshot(""))
	s := NewSession(SessionOptions{
		UserId:       sharedTypes.UUID{1},
		Transport:    flog,
		Buffer:       buffer,
		PollInterval: time.Millisecond,
	})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitForSnapshot(t, buffer, "a\nb\nc")

	// A stray local mutation without a change event leaves the buffer too
	// short for the next remote operation. The poll loop must fall back to a
	// full reload instead of applying onto the broken state.
	buffer.SetLines(sharedTypes.Lines{"a"})
	_, err = flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Row: 2, Action: sharedTypes.ActionUpdate, Content: "c!",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}
	waitForSnapshot(t, buffer, "a\nb\nc!")

	cancel()
	<-done
}

// countingBuffer records how often the buffer content gets replaced.
type countingBuffer struct {
	*MemoryBuffer
	mu   sync.Mutex
	sets int
}

func (b *countingBuffer) SetLines(lines sharedTypes.Lines) {
	b.mu.Lock()
	b.sets++
	b.mu.Unlock()
	b.MemoryBuffer.SetLines(lines)
}

func TestSessionReloadSkipsMatchingSnapshot(t *testing.T) {
	ctx := context.Background()
	flog := newFakeLog()
	_, err := flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Action: sharedTypes.ActionSaveAll, Content: "stable",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}

	buffer := &countingBuffer{
		MemoryBuffer: NewMemoryBuffer(sharedTypes.Snapshot("")),
	}
	s := NewSession(SessionOptions{
		UserId: sharedTypes.UUID{1}, Transport: flog, Buffer: buffer,
	})
	if err = s.reload(ctx); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	if buffer.sets != 1 {
		t.Fatalf("buffer replaced %d times, want 1", buffer.sets)
	}

	// A reload that matches the current head and content must not touch
	// the buffer again.
	if err = s.reload(ctx); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	if buffer.sets != 1 {
		t.Errorf("matching reload replaced the buffer, sets = %d", buffer.sets)
	}
}

// flakyLog fails the first loads full snapshot fetches.
type flakyLog struct {
	*fakeLog
	mu    sync.Mutex
	loads int
}

func (f *flakyLog) MaterializeDocument(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	f.mu.Lock()
	if f.loads > 0 {
		f.loads--
		f.mu.Unlock()
		return nil, 0, errors.New("connection reset")
	}
	f.mu.Unlock()
	return f.fakeLog.MaterializeDocument(ctx, docId)
}

func TestSessionRetriesInitialLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flog := newFakeLog()
	_, err := flog.AppendOperation(ctx, sharedTypes.UUID{}, sharedTypes.Operation{
		Action: sharedTypes.ActionSaveAll, Content: "ready",
	})
	if err != nil {
		t.Fatalf("AppendOperation() error = %v", err)
	}

	buffer := NewMemoryBuffer(sharedTypes.Snapshot(""))
	s := NewSession(SessionOptions{
		UserId:       sharedTypes.UUID{1},
		Transport:    &flakyLog{fakeLog: flog, loads: 2},
		Buffer:       buffer,
		PollInterval: time.Millisecond,
	})
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitForSnapshot(t, buffer, "ready")

	cancel()
	if err = <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
