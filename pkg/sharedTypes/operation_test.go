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
	"reflect"
	"testing"
)

func TestOperationDecode(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		want    Edit
		wantErr bool
	}{
		{
			name: "update",
			op:   Operation{Row: 2, Action: ActionUpdate, Content: "x"},
			want: LineReplace{Row: 2, Text: "x"},
		},
		{
			name: "deleteSameLineIsAReplace",
			op:   Operation{Row: 0, Action: ActionDeleteSameLine, Content: "rest"},
			want: LineReplace{Row: 0, Text: "rest"},
		},
		{
			name: "insert",
			op:   Operation{Row: 1, Action: ActionInsert, Content: "new"},
			want: LineInsert{Row: 1, Text: "new"},
		},
		{
			name: "pasteIsAnInsert",
			op:   Operation{Row: 1, Action: ActionPaste, Content: "new"},
			want: LineInsert{Row: 1, Text: "new"},
		},
		{
			name: "delete",
			op:   Operation{Row: 3, Action: ActionDelete, Content: "ignored"},
			want: LineDelete{Row: 3},
		},
		{
			name: "deleteHighlighted",
			op:   Operation{Row: 2, Action: ActionDeleteHighlighted, Content: "4"},
			want: RangeDelete{Start: 2, End: 4},
		},
		{
			name: "saveAll",
			op:   Operation{Action: ActionSaveAll, Content: "a\nb"},
			want: FullReplace{Text: "a\nb"},
		},
		{
			name:    "negativeRow",
			op:      Operation{Row: -1, Action: ActionUpdate},
			wantErr: true,
		},
		{
			name:    "unknownAction",
			op:      Operation{Action: "reticulate"},
			wantErr: true,
		},
		{
			name:    "deleteHighlightedWithoutEndRow",
			op:      Operation{Row: 2, Action: ActionDeleteHighlighted, Content: "oops"},
			wantErr: true,
		},
		{
			name:    "deleteHighlightedEndBeforeStart",
			op:      Operation{Row: 2, Action: ActionDeleteHighlighted, Content: "1"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Decode()
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode() got = %v, want %v", got, tt.want)
			}
		})
	}
}
