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

// Sequence is the position of an operation in a document log. The first
// appended operation gets Sequence 1; a client that has seen nothing polls
// with 0.
type Sequence int64

func (s Sequence) Equals(other Sequence) bool {
	return s == other
}

func (s Sequence) String() string {
	return strconv.FormatInt(int64(s), 10)
}

func (s *Sequence) ParseIfSet(raw string) error {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return &errors.ValidationError{Msg: "invalid sequence (int)"}
	}
	*s = Sequence(n)
	return nil
}

// Version numbers saved snapshots of a file, starting at 1 per file.
type Version int64

func (v Version) Equals(other Version) bool {
	return v == other
}

func (v Version) String() string {
	return strconv.FormatInt(int64(v), 10)
}

func (v *Version) ParseIfSet(s string) error {
	if s == "" {
		return nil
	}
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &errors.ValidationError{Msg: "invalid version (int)"}
	}
	*v = Version(raw)
	return nil
}
