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

// Package lineDiff compares two documents line by line via their longest
// common subsequence and tags every line as unchanged, added or deleted.
package lineDiff

import (
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type Type string

const (
	Unchanged Type = "unchanged"
	Add       Type = "add"
	Delete    Type = "delete"
)

type Entry struct {
	Type Type   `json:"type"`
	Line string `json:"value"`
}

// maxOperandLength bounds the quadratic matrix; longer inputs are truncated
// rather than diffed in full.
const maxOperandLength = 10000

func buildMatrix(a, b sharedTypes.Lines) [][]int {
	rows := len(a) + 1
	columns := len(b) + 1
	m := make([][]int, rows)
	for i := 0; i < rows; i++ {
		m[i] = make([]int, columns)
	}
	for i := 1; i < rows; i++ {
		for j := 1; j < columns; j++ {
			if a[i-1] == b[j-1] {
				m[i][j] = m[i-1][j-1] + 1
			} else if m[i-1][j] >= m[i][j-1] {
				m[i][j] = m[i-1][j]
			} else {
				m[i][j] = m[i][j-1]
			}
		}
	}
	return m
}

// Compare diffs before against after, returning one Entry per line in display
// order. When the backtrack could equally take an add or a delete, the add
// is consumed first, which pins the output order for replaced lines.
func Compare(before, after sharedTypes.Lines) []Entry {
	if len(before) > maxOperandLength {
		before = before[:maxOperandLength]
	}
	if len(after) > maxOperandLength {
		after = after[:maxOperandLength]
	}
	m := buildMatrix(before, after)
	diff := make([]Entry, 0, len(before)+len(after))
	i, j := len(before), len(after)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && before[i-1] == after[j-1]:
			diff = append(diff, Entry{Type: Unchanged, Line: before[i-1]})
			i--
			j--
		case j > 0 && (i == 0 || m[i][j-1] >= m[i-1][j]):
			diff = append(diff, Entry{Type: Add, Line: after[j-1]})
			j--
		default:
			diff = append(diff, Entry{Type: Delete, Line: before[i-1]})
			i--
		}
	}
	for x, y := 0, len(diff)-1; x < y; x, y = x+1, y-1 {
		diff[x], diff[y] = diff[y], diff[x]
	}
	return diff
}
