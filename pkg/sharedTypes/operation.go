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

package sharedTypes

import (
	"strconv"

	"github.com/das7pad/codelive/pkg/errors"
)

type Action string

const (
	ActionUpdate            Action = "update"
	ActionInsert            Action = "insert"
	ActionDelete            Action = "delete"
	ActionDeleteSameLine    Action = "delete-same-line"
	ActionDeleteHighlighted Action = "delete-highlighted"
	ActionPaste             Action = "paste"
	ActionSaveAll           Action = "save-all"
)

func (a Action) Validate() error {
	switch a {
	case ActionUpdate, ActionInsert, ActionDelete, ActionDeleteSameLine,
		ActionDeleteHighlighted, ActionPaste, ActionSaveAll:
		return nil
	default:
		return &errors.ValidationError{Msg: "unknown action: " + string(a)}
	}
}

// Operation is one sequenced edit instruction in a documents log. It is
// immutable once appended; Seq is assigned by the log, everything else by the
// emitting client.
type Operation struct {
	Seq Sequence `json:"modID,omitempty"`
	Row int64    `json:"row"`
	// Action selects how Content is interpreted, see Decode.
	Action  Action `json:"action"`
	Content string `json:"content"`
	// LinesLength is the line count of the senders buffer at emission time.
	// Diagnostic hint only, never needed for correctness.
	LinesLength int64 `json:"linesLength"`
	UserId      UUID  `json:"userID,omitempty"`
}

func (o *Operation) Validate() error {
	if o.Row < 0 {
		return &errors.ValidationError{Msg: "row must be non-negative"}
	}
	if err := o.Action.Validate(); err != nil {
		return err
	}
	if o.Action == ActionDeleteHighlighted {
		if _, err := o.endRow(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Operation) endRow() (int64, error) {
	end, err := strconv.ParseInt(o.Content, 10, 64)
	if err != nil {
		return 0, &errors.ValidationError{
			Msg: "delete-highlighted content must encode the end row",
		}
	}
	if end < o.Row {
		return 0, &errors.ValidationError{
			Msg: "delete-highlighted end row must not precede row",
		}
	}
	return end, nil
}

// Edit is the decoded form of an Operation, one variant per distinct shape of
// text change. Consumers switch over the concrete types; the set is closed.
type Edit interface {
	isEdit()
}

// LineReplace swaps the whole of line Row for Text.
type LineReplace struct {
	Row  int64
	Text string
}

// LineInsert adds Text as a new line at index Row, pushing the rest down.
type LineInsert struct {
	Row  int64
	Text string
}

// LineDelete removes line Row entirely, including its line break.
type LineDelete struct {
	Row int64
}

// RangeDelete removes lines Start through End, both inclusive.
type RangeDelete struct {
	Start int64
	End   int64
}

// FullReplace swaps the entire document for Text.
type FullReplace struct {
	Text string
}

func (LineReplace) isEdit() {}
func (LineInsert) isEdit()  {}
func (LineDelete) isEdit()  {}
func (RangeDelete) isEdit() {}
func (FullReplace) isEdit() {}

// Decode validates the Operation and maps it onto its Edit variant.
func (o *Operation) Decode() (Edit, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	switch o.Action {
	case ActionUpdate, ActionDeleteSameLine:
		return LineReplace{Row: o.Row, Text: o.Content}, nil
	case ActionInsert, ActionPaste:
		return LineInsert{Row: o.Row, Text: o.Content}, nil
	case ActionDelete:
		return LineDelete{Row: o.Row}, nil
	case ActionDeleteHighlighted:
		end, err := o.endRow()
		if err != nil {
			return nil, err
		}
		return RangeDelete{Start: o.Row, End: end}, nil
	case ActionSaveAll:
		return FullReplace{Text: o.Content}, nil
	default:
		return nil, &errors.ValidationError{
			Msg: "unknown action: " + string(o.Action),
		}
	}
}

type Operations []Operation
