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

package lineDiff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

type Span struct {
	Type Type   `json:"type"`
	Text string `json:"text"`
}

type RefinedEntry struct {
	Entry
	// Spans break an added line into character level changes against the
	// deleted line it replaced. Only set on add entries directly preceded by
	// a delete.
	Spans []Span `json:"spans,omitempty"`
}

// Refine annotates every delete+add pair of adjacent entries with a character
// level diff of the two lines, turning a full-line replacement into the
// within-line edit a reader actually made.
func Refine(entries []Entry) []RefinedEntry {
	dmp := diffmatchpatch.New()
	out := make([]RefinedEntry, len(entries))
	for i, entry := range entries {
		out[i] = RefinedEntry{Entry: entry}
		if entry.Type != Add || i == 0 || entries[i-1].Type != Delete {
			continue
		}
		d := dmp.DiffMainRunes(
			[]rune(entries[i-1].Line), []rune(entry.Line), false,
		)
		d = dmp.DiffCleanupSemantic(d)
		spans := make([]Span, 0, len(d))
		for _, component := range d {
			switch component.Type {
			case diffmatchpatch.DiffEqual:
				spans = append(spans, Span{
					Type: Unchanged, Text: component.Text,
				})
			case diffmatchpatch.DiffInsert:
				spans = append(spans, Span{Type: Add, Text: component.Text})
			case diffmatchpatch.DiffDelete:
				spans = append(spans, Span{Type: Delete, Text: component.Text})
			}
		}
		out[i].Spans = spans
	}
	return out
}
