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
	"log"
	"sync"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/changelog/pkg/lineEdit"
)

// state is the suppression FSM. A local change is only classified while
// Idle; changes observed while Applying are the reconcilers own writes
// echoing back from the widget.
type state int

const (
	stateIdle state = iota
	stateEmitting
	stateApplying
)

// ErrDiverged signals that the local buffer no longer matches the log and a
// full snapshot reload is needed.
var ErrDiverged = errors.New("local buffer diverged")

// ChangeEvent is one widget change notification, already applied to the
// Buffer by the widget. Rows are zero based; EndRow is the last affected row.
type ChangeEvent struct {
	StartRow int64
	EndRow   int64
	// Text is the replacement text of the gesture, empty for deletions.
	Text string
	// MidLineStart marks a paste that began at a non-zero column.
	MidLineStart bool
	Highlighted  bool
	Enter        bool
	Paste        bool
	Undo         bool
	SaveAll      bool
}

// Reconciler translates between widget change events and log operations for
// one document. All methods are safe for concurrent use; the polling session
// and the widget callbacks run on different goroutines.
type Reconciler struct {
	docId sharedTypes.UUID
	// userId identifies the local user. Every emitted operation carries it
	// and the log stamps it again from the request identity, so the poll
	// can tell the clients own operations from everyone elses even when a
	// poll tick overtakes the append response.
	userId    sharedTypes.UUID
	transport Transport
	buffer    Buffer
	readOnly  bool

	mu       sync.Mutex
	state    state
	lastSeen sharedTypes.Sequence
}

func NewReconciler(docId, userId sharedTypes.UUID, transport Transport, buffer Buffer, readOnly bool) *Reconciler {
	return &Reconciler{
		docId:     docId,
		userId:    userId,
		transport: transport,
		buffer:    buffer,
		readOnly:  readOnly,
	}
}

func (r *Reconciler) LastSeen() sharedTypes.Sequence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeen
}

// Classify turns one change event into the operations other clients need to
// replay it. lines is the buffer content after the change.
func Classify(ev ChangeEvent, lines sharedTypes.Lines) (sharedTypes.Operations, error) {
	n := int64(len(lines))
	if ev.StartRow < 0 || ev.EndRow < ev.StartRow {
		return nil, &errors.ValidationError{Msg: "bad change event range"}
	}
	linesLength := n

	if ev.SaveAll {
		return sharedTypes.Operations{{
			Row:         0,
			Action:      sharedTypes.ActionSaveAll,
			Content:     string(lines.ToSnapshot()),
			LinesLength: linesLength,
		}}, nil
	}

	if ev.Highlighted || ev.Undo {
		// A removed multi-line selection: drop the selected rows, then
		// restore the merged line above them.
		ops := sharedTypes.Operations{{
			Row:         ev.StartRow,
			Action:      sharedTypes.ActionDeleteHighlighted,
			Content:     sharedTypes.Int(ev.EndRow).String(),
			LinesLength: linesLength,
		}}
		// A selection from the top of the document leaves the merged line
		// on row 0 instead of the row above the selection.
		merged := ev.StartRow - 1
		if merged < 0 {
			merged = 0
		}
		if merged < n {
			ops = append(ops, sharedTypes.Operation{
				Row:         merged,
				Action:      sharedTypes.ActionUpdate,
				Content:     lines[merged],
				LinesLength: linesLength,
			})
		}
		return ops, nil
	}

	if ev.Enter {
		newRow := ev.StartRow + 1
		if newRow >= n {
			return nil, &errors.ValidationError{Msg: "bad enter event row"}
		}
		ops := sharedTypes.Operations{{
			Row:         newRow,
			Action:      sharedTypes.ActionInsert,
			Content:     lines[newRow],
			LinesLength: linesLength,
		}}
		if lines[ev.StartRow] != "" {
			// The split left a remainder on the line above.
			ops = append(ops, sharedTypes.Operation{
				Row:         ev.StartRow,
				Action:      sharedTypes.ActionUpdate,
				Content:     lines[ev.StartRow],
				LinesLength: linesLength,
			})
		}
		return ops, nil
	}

	if ev.Paste {
		if ev.EndRow >= n {
			return nil, &errors.ValidationError{Msg: "bad paste event range"}
		}
		ops := make(sharedTypes.Operations, 0, ev.EndRow-ev.StartRow+1)
		row := ev.StartRow
		if ev.MidLineStart {
			// The first pasted line merged with the existing prefix.
			ops = append(ops, sharedTypes.Operation{
				Row:         row,
				Action:      sharedTypes.ActionUpdate,
				Content:     lines[row],
				LinesLength: linesLength,
			})
			row++
		}
		for ; row <= ev.EndRow; row++ {
			action := sharedTypes.ActionInsert
			if row == ev.StartRow {
				action = sharedTypes.ActionPaste
			}
			ops = append(ops, sharedTypes.Operation{
				Row:         row,
				Action:      action,
				Content:     lines[row],
				LinesLength: linesLength,
			})
		}
		return ops, nil
	}

	if ev.StartRow >= n {
		return nil, &errors.ValidationError{Msg: "bad change event row"}
	}
	action := sharedTypes.ActionUpdate
	if ev.Text == "" && ev.StartRow == ev.EndRow {
		// In-line deletion, the line shrank but stayed.
		action = sharedTypes.ActionDeleteSameLine
	}
	return sharedTypes.Operations{{
		Row:         ev.StartRow,
		Action:      action,
		Content:     lines[ev.StartRow],
		LinesLength: linesLength,
	}}, nil
}

// LocalChange classifies ev and sends the resulting operations one by one,
// in order, so a multi-op gesture reaches other clients as an ordered
// sub-sequence. Events observed while a remote operation is being applied
// are echoes and get dropped.
func (r *Reconciler) LocalChange(ctx context.Context, ev ChangeEvent) error {
	if r.readOnly {
		return &errors.NotAuthorizedError{}
	}
	r.mu.Lock()
	if r.state == stateApplying {
		r.mu.Unlock()
		return nil
	}
	if r.state == stateEmitting {
		r.mu.Unlock()
		return &errors.InvalidStateError{Msg: "change while emitting"}
	}
	r.state = stateEmitting
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.state = stateIdle
		r.mu.Unlock()
	}()

	ops, err := Classify(ev, r.buffer.Lines())
	if err != nil {
		return err
	}
	for _, op := range ops {
		op.UserId = r.userId
		if _, err2 := r.transport.AppendOperation(ctx, r.docId, op); err2 != nil {
			return errors.Tag(err2, "append op")
		}
	}
	return nil
}

// ApplyRemote applies one polled operation to the buffer and advances
// lastSeen to its sequence. Own operations echoing back are skipped by user
// identity, their sequence still counts as seen. Returns ErrDiverged when
// the operation does not fit the local buffer; the caller recovers with a
// snapshot reload.
func (r *Reconciler) ApplyRemote(op sharedTypes.Operation) error {
	r.mu.Lock()
	if op.Seq <= r.lastSeen {
		r.mu.Unlock()
		return nil
	}
	if op.UserId == r.userId {
		r.lastSeen = op.Seq
		r.mu.Unlock()
		return nil
	}
	r.state = stateApplying
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.state = stateIdle
		r.mu.Unlock()
	}()

	next, err := lineEdit.Apply(r.buffer.Lines(), op)
	if err != nil {
		return ErrDiverged
	}
	r.buffer.SetLines(next)
	r.mu.Lock()
	r.lastSeen = op.Seq
	r.mu.Unlock()
	if op.LinesLength > 0 && op.LinesLength != int64(len(next)) {
		log.Printf(
			"%s: line count drift after op %s: %d != %d",
			r.docId, op.Seq, op.LinesLength, len(next),
		)
	}
	return nil
}

// ResetTo replaces the buffer with a full snapshot, the inbound counterpart
// of save-all and the recovery path for divergence.
func (r *Reconciler) ResetTo(snapshot sharedTypes.Snapshot, seq sharedTypes.Sequence) {
	r.mu.Lock()
	r.state = stateApplying
	r.mu.Unlock()
	r.buffer.SetLines(snapshot.ToLines())
	r.mu.Lock()
	r.lastSeen = seq
	r.state = stateIdle
	r.mu.Unlock()
}
