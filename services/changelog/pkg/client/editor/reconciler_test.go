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
	"reflect"
	"sync"
	"testing"

	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/changelog/pkg/lineEdit"
)

// fakeLog is an in-memory authoritative log with the same append contract as
// the changelog service.
type fakeLog struct {
	mu    sync.Mutex
	ops   sharedTypes.Operations
	lines sharedTypes.Lines
}

func newFakeLog() *fakeLog {
	return &fakeLog{lines: lineEdit.Empty()}
}

func (f *fakeLog) AppendOperation(_ context.Context, _ sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op.Seq = sharedTypes.Sequence(len(f.ops) + 1)
	next, err := lineEdit.Apply(f.lines, op)
	if err != nil {
		return 0, err
	}
	f.lines = next
	f.ops = append(f.ops, op)
	return op.Seq, nil
}

func (f *fakeLog) ReadOperationsSince(_ context.Context, _ sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if since >= sharedTypes.Sequence(len(f.ops)) {
		return nil, nil
	}
	tail := f.ops[since:]
	ops := make(sharedTypes.Operations, len(tail))
	copy(ops, tail)
	return ops, nil
}

func (f *fakeLog) MaterializeDocument(_ context.Context, _ sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines.ToSnapshot(), sharedTypes.Sequence(len(f.ops)), nil
}

func (f *fakeLog) snapshot() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.lines.ToSnapshot())
}

func TestClassify(t *testing.T) {
	type args struct {
		ev    ChangeEvent
		lines sharedTypes.Lines
	}
	tests := []struct {
		name    string
		args    args
		want    sharedTypes.Operations
		wantErr bool
	}{
		{
			name: "typing",
			args: args{
				ev:    ChangeEvent{StartRow: 1, EndRow: 1, Text: "x"},
				lines: sharedTypes.Lines{"a", "bx", "c"},
			},
			want: sharedTypes.Operations{{
				Row: 1, Action: sharedTypes.ActionUpdate, Content: "bx",
				LinesLength: 3,
			}},
		},
		{
			name: "inLineDeletion",
			args: args{
				ev:    ChangeEvent{StartRow: 1, EndRow: 1, Text: ""},
				lines: sharedTypes.Lines{"a", "b", "c"},
			},
			want: sharedTypes.Operations{{
				Row: 1, Action: sharedTypes.ActionDeleteSameLine,
				Content: "b", LinesLength: 3,
			}},
		},
		{
			name: "highlightedDeletePair",
			args: args{
				ev: ChangeEvent{
					StartRow: 2, EndRow: 4, Highlighted: true,
				},
				lines: sharedTypes.Lines{"l0", "l1-presuf", "l5"},
			},
			want: sharedTypes.Operations{
				{
					Row: 2, Action: sharedTypes.ActionDeleteHighlighted,
					Content: "4", LinesLength: 3,
				},
				{
					Row: 1, Action: sharedTypes.ActionUpdate,
					Content: "l1-presuf", LinesLength: 3,
				},
			},
		},
		{
			name: "highlightedDeleteAtTop",
			args: args{
				ev: ChangeEvent{
					StartRow: 0, EndRow: 1, Highlighted: true,
				},
				lines: sharedTypes.Lines{"rest"},
			},
			want: sharedTypes.Operations{
				{
					Row: 0, Action: sharedTypes.ActionDeleteHighlighted,
					Content: "1", LinesLength: 1,
				},
				{
					Row: 0, Action: sharedTypes.ActionUpdate,
					Content: "rest", LinesLength: 1,
				},
			},
		},
		{
			// Selecting from the start of line 0 into the middle of a
			// later line must still transmit the merged remnant.
			name: "highlightedDeleteAtTopKeepsRemnant",
			args: args{
				ev: ChangeEvent{
					StartRow: 0, EndRow: 2, Highlighted: true,
				},
				lines: sharedTypes.Lines{"-suf"},
			},
			want: sharedTypes.Operations{
				{
					Row: 0, Action: sharedTypes.ActionDeleteHighlighted,
					Content: "2", LinesLength: 1,
				},
				{
					Row: 0, Action: sharedTypes.ActionUpdate,
					Content: "-suf", LinesLength: 1,
				},
			},
		},
		{
			name: "enterWithRemainder",
			args: args{
				ev:    ChangeEvent{StartRow: 0, EndRow: 1, Enter: true},
				lines: sharedTypes.Lines{"ab", "cd", "e"},
			},
			want: sharedTypes.Operations{
				{
					Row: 1, Action: sharedTypes.ActionInsert, Content: "cd",
					LinesLength: 3,
				},
				{
					Row: 0, Action: sharedTypes.ActionUpdate, Content: "ab",
					LinesLength: 3,
				},
			},
		},
		{
			name: "enterOnEmptyLine",
			args: args{
				ev:    ChangeEvent{StartRow: 0, EndRow: 1, Enter: true},
				lines: sharedTypes.Lines{"", "cd"},
			},
			want: sharedTypes.Operations{{
				Row: 1, Action: sharedTypes.ActionInsert, Content: "cd",
				LinesLength: 2,
			}},
		},
		{
			name: "pasteWholeLines",
			args: args{
				ev: ChangeEvent{
					StartRow: 1, EndRow: 2, Paste: true, Text: "k0\nk1\n",
				},
				lines: sharedTypes.Lines{"m0", "k0", "k1", "m1"},
			},
			want: sharedTypes.Operations{
				{
					Row: 1, Action: sharedTypes.ActionPaste, Content: "k0",
					LinesLength: 4,
				},
				{
					Row: 2, Action: sharedTypes.ActionInsert, Content: "k1",
					LinesLength: 4,
				},
			},
		},
		{
			name: "pasteMidLine",
			args: args{
				ev: ChangeEvent{
					StartRow: 0, EndRow: 1, Paste: true,
					Text: "k0\nk1", MidLineStart: true,
				},
				lines: sharedTypes.Lines{"prek0", "k1suf", "m1"},
			},
			want: sharedTypes.Operations{
				{
					Row: 0, Action: sharedTypes.ActionUpdate,
					Content: "prek0", LinesLength: 3,
				},
				{
					Row: 1, Action: sharedTypes.ActionInsert,
					Content: "k1suf", LinesLength: 3,
				},
			},
		},
		{
			name: "saveAll",
			args: args{
				ev:    ChangeEvent{SaveAll: true},
				lines: sharedTypes.Lines{"a", "b"},
			},
			want: sharedTypes.Operations{{
				Row: 0, Action: sharedTypes.ActionSaveAll, Content: "a\nb",
				LinesLength: 2,
			}},
		},
		{
			name: "rowPastBuffer",
			args: args{
				ev:    ChangeEvent{StartRow: 5, EndRow: 5, Text: "x"},
				lines: sharedTypes.Lines{"a"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.args.ev, tt.args.lines)
			if (err != nil) != tt.wantErr {
				t.Errorf("Classify() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocalChangeReadOnly(t *testing.T) {
	flog := newFakeLog()
	buffer := NewMemoryBuffer(sharedTypes.Snapshot("a"))
	r := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{1}, flog, buffer, true)
	err := r.LocalChange(context.Background(), ChangeEvent{Text: "x"})
	if err == nil {
		t.Fatal("LocalChange() on read-only reconciler must fail")
	}
	if len(flog.ops) != 0 {
		t.Errorf("read-only reconciler emitted %d ops", len(flog.ops))
	}
}

func TestApplyRemoteSkipsOwnOps(t *testing.T) {
	ctx := context.Background()
	flog := newFakeLog()
	buffer := NewMemoryBuffer(sharedTypes.Snapshot(""))
	r := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{1}, flog, buffer, false)

	buffer.SetLines(sharedTypes.Lines{"hello"})
	err := r.LocalChange(ctx, ChangeEvent{StartRow: 0, EndRow: 0, Text: "hello"})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}

	ops, _ := flog.ReadOperationsSince(ctx, sharedTypes.UUID{}, r.LastSeen())
	for _, op := range ops {
		if err = r.ApplyRemote(op); err != nil {
			t.Fatalf("ApplyRemote() error = %v", err)
		}
	}
	if got := buffer.Snapshot(); string(got) != "hello" {
		t.Errorf("own op re-applied, buffer = %q", string(got))
	}
	if r.LastSeen() != 1 {
		t.Errorf("lastSeen = %s, want 1", r.LastSeen())
	}
}

// echoFeedbackLog delivers every appended operation back through the
// reconciler before the append call returns, the interleaving of a poll
// tick landing between the server-side append and its response.
type echoFeedbackLog struct {
	*fakeLog
	r *Reconciler
}

func (f *echoFeedbackLog) AppendOperation(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error) {
	seq, err := f.fakeLog.AppendOperation(ctx, docId, op)
	if err != nil {
		return 0, err
	}
	op.Seq = seq
	if err = f.r.ApplyRemote(op); err != nil {
		return 0, err
	}
	return seq, nil
}

func TestApplyRemoteSkipsOwnOpsRacingAppend(t *testing.T) {
	ctx := context.Background()
	flog := newFakeLog()
	echo := &echoFeedbackLog{fakeLog: flog}
	buffer := NewMemoryBuffer(sharedTypes.Snapshot("hello"))
	r := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{1}, echo, buffer, false)
	echo.r = r

	err := r.LocalChange(ctx, ChangeEvent{SaveAll: true})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	buffer.SetLines(sharedTypes.Lines{"hello", "world"})
	err = r.LocalChange(ctx, ChangeEvent{
		StartRow: 1, EndRow: 1, Paste: true, Text: "world",
	})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	drain(t, flog, r)

	server := flog.snapshot()
	if got := string(buffer.Snapshot()); got != server {
		t.Errorf("origin diverged: client = %q, server = %q", got, server)
	}
	if r.LastSeen() != 2 {
		t.Errorf("lastSeen = %s, want 2", r.LastSeen())
	}
}

func TestApplyRemoteIdempotentBoundary(t *testing.T) {
	buffer := NewMemoryBuffer(sharedTypes.Snapshot("a"))
	r := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{1}, newFakeLog(), buffer, false)
	op := sharedTypes.Operation{
		Seq: 1, Row: 1, Action: sharedTypes.ActionInsert, Content: "b",
	}
	if err := r.ApplyRemote(op); err != nil {
		t.Fatalf("ApplyRemote() error = %v", err)
	}
	// Re-polling the same op must not apply it twice.
	if err := r.ApplyRemote(op); err != nil {
		t.Fatalf("ApplyRemote() again error = %v", err)
	}
	if got := buffer.Snapshot(); string(got) != "a\nb" {
		t.Errorf("buffer = %q, want %q", string(got), "a\nb")
	}
	if r.LastSeen() != 1 {
		t.Errorf("lastSeen = %s, want 1", r.LastSeen())
	}
}

func TestApplyRemoteDivergence(t *testing.T) {
	buffer := NewMemoryBuffer(sharedTypes.Snapshot("a"))
	r := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{1}, newFakeLog(), buffer, false)
	op := sharedTypes.Operation{
		Seq: 1, Row: 7, Action: sharedTypes.ActionDelete,
	}
	if err := r.ApplyRemote(op); err != ErrDiverged {
		t.Errorf("ApplyRemote() error = %v, want ErrDiverged", err)
	}
}

// drain polls the log and applies everything outstanding, like one fast tick.
func drain(t *testing.T, flog *fakeLog, r *Reconciler) {
	t.Helper()
	ops, err := flog.ReadOperationsSince(
		context.Background(), sharedTypes.UUID{}, r.LastSeen(),
	)
	if err != nil {
		t.Fatalf("ReadOperationsSince() error = %v", err)
	}
	for _, op := range ops {
		if err = r.ApplyRemote(op); err != nil {
			t.Fatalf("ApplyRemote() error = %v", err)
		}
	}
}

func TestConvergence(t *testing.T) {
	ctx := context.Background()
	flog := newFakeLog()
	bufA := NewMemoryBuffer(sharedTypes.Snapshot(""))
	bufB := NewMemoryBuffer(sharedTypes.Snapshot(""))
	a := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{0xa}, flog, bufA, false)
	b := NewReconciler(sharedTypes.UUID{}, sharedTypes.UUID{0xb}, flog, bufB, false)

	// A seeds the document.
	bufA.SetLines(sharedTypes.Lines{"shared", "doc"})
	err := a.LocalChange(ctx, ChangeEvent{SaveAll: true})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	drain(t, flog, a)
	drain(t, flog, b)

	// Interleaved edits from both sides.
	bufA.SetLines(sharedTypes.Lines{"shared!", "doc"})
	err = a.LocalChange(ctx, ChangeEvent{StartRow: 0, EndRow: 0, Text: "!"})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	drain(t, flog, b)
	bufB.SetLines(sharedTypes.Lines{"shared!", "doc", "more"})
	err = b.LocalChange(ctx, ChangeEvent{
		StartRow: 2, EndRow: 2, Paste: true, Text: "more",
	})
	if err != nil {
		t.Fatalf("LocalChange() error = %v", err)
	}
	drain(t, flog, a)
	drain(t, flog, b)

	if a.LastSeen() != b.LastSeen() {
		t.Fatalf(
			"lastSeen mismatch: %s != %s", a.LastSeen(), b.LastSeen(),
		)
	}
	server := flog.snapshot()
	if got := string(bufA.Snapshot()); got != server {
		t.Errorf("client a = %q, server = %q", got, server)
	}
	if got := string(bufB.Snapshot()); got != server {
		t.Errorf("client b = %q, server = %q", got, server)
	}
}
