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

package file

import (
	"time"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type IdField struct {
	Id sharedTypes.UUID `json:"fileID"`
}

type WithName struct {
	IdField
	Name string `json:"filename"`
}

type ListEntry struct {
	WithName
	PrivilegeLevel sharedTypes.PrivilegeLevel `json:"access"`
	CreatedAt      time.Time                  `json:"createdAt"`
}

type AccessDetails struct {
	PrivilegeLevel sharedTypes.PrivilegeLevel `json:"access"`
	ReadOnly       bool                       `json:"readOnly"`
}

const MaxNameLength = 255

func ValidateName(name string) error {
	if name == "" {
		return &errors.ValidationError{Msg: "filename missing"}
	}
	if len(name) > MaxNameLength {
		return &errors.ValidationError{Msg: "filename too long"}
	}
	for _, c := range name {
		if c == '/' || c == '\\' || c == 0 {
			return &errors.ValidationError{Msg: "filename contains invalid characters"}
		}
	}
	return nil
}
