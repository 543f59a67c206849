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

package lineEdit

import (
	"strings"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

var ErrRowOutOfBounds = &errors.ValidationError{Msg: "row is out of bounds"}

// Empty is the buffer a document log replays from: a single empty line, the
// same shape an editor shows for a blank file.
func Empty() sharedTypes.Lines {
	return sharedTypes.Lines{""}
}

// Apply maps op onto lines and returns the changed copy. It rejects any op
// that does not fit the current shape of lines; the authoritative log
// validates with Apply before appending, so a persisted log always replays
// cleanly.
func Apply(lines sharedTypes.Lines, op sharedTypes.Operation) (sharedTypes.Lines, error) {
	e, err := op.Decode()
	if err != nil {
		return nil, err
	}
	switch edit := e.(type) {
	case sharedTypes.LineReplace:
		n := int64(len(lines))
		if edit.Row > n {
			return nil, ErrRowOutOfBounds
		}
		if edit.Row == n {
			return append(lines, edit.Text), nil
		}
		next := make(sharedTypes.Lines, n)
		copy(next, lines)
		next[edit.Row] = edit.Text
		return next, nil
	case sharedTypes.LineInsert:
		n := int64(len(lines))
		row := edit.Row
		if row > n {
			row = n
		}
		next := make(sharedTypes.Lines, 0, n+1)
		next = append(next, lines[:row]...)
		next = append(next, edit.Text)
		next = append(next, lines[row:]...)
		return next, nil
	case sharedTypes.LineDelete:
		n := int64(len(lines))
		if edit.Row >= n {
			return nil, ErrRowOutOfBounds
		}
		next := make(sharedTypes.Lines, 0, n-1)
		next = append(next, lines[:edit.Row]...)
		next = append(next, lines[edit.Row+1:]...)
		if len(next) == 0 {
			return Empty(), nil
		}
		return next, nil
	case sharedTypes.RangeDelete:
		n := int64(len(lines))
		if edit.Start >= n {
			return nil, ErrRowOutOfBounds
		}
		end := edit.End
		if end >= n {
			end = n - 1
		}
		next := make(sharedTypes.Lines, 0, n-(end-edit.Start+1))
		next = append(next, lines[:edit.Start]...)
		next = append(next, lines[end+1:]...)
		if len(next) == 0 {
			return Empty(), nil
		}
		return next, nil
	case sharedTypes.FullReplace:
		return strings.Split(edit.Text, "\n"), nil
	default:
		return nil, &errors.ValidationError{Msg: "unhandled edit variant"}
	}
}

// Replay folds ops over lines in order. Any op failing to apply aborts the
// replay; the log never persists such an op in the first place.
func Replay(lines sharedTypes.Lines, ops sharedTypes.Operations) (sharedTypes.Lines, error) {
	var err error
	for i := range ops {
		lines, err = Apply(lines, ops[i])
		if err != nil {
			return nil, errors.Tag(err, "replay op "+ops[i].Seq.String())
		}
	}
	return lines, nil
}
