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

package user

import (
	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type IdField struct {
	Id sharedTypes.UUID `json:"userID"`
}

type WithPublicInfo struct {
	IdField
	Username string `json:"username"`
}

const (
	MinPasswordLength = 4
	MaxPasswordLength = 72
	MaxUsernameLength = 64
)

func ValidateUsername(username string) error {
	if username == "" {
		return &errors.ValidationError{Msg: "username missing"}
	}
	if len(username) > MaxUsernameLength {
		return &errors.ValidationError{Msg: "username too long"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &errors.ValidationError{Msg: "password too short"}
	}
	// bcrypt operates on at most 72 bytes
	if len(password) > MaxPasswordLength {
		return &errors.ValidationError{Msg: "password too long"}
	}
	return nil
}
