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

package types

import (
	"github.com/das7pad/codelive/pkg/lineDiff"
	"github.com/das7pad/codelive/pkg/models/file"
	"github.com/das7pad/codelive/pkg/models/user"
	"github.com/das7pad/codelive/pkg/models/version"
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterUserResponse struct {
	user.IdField
}

type LoginUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginUserResponse struct {
	user.IdField
}

type ListFilesResponse struct {
	Files []file.ListEntry `json:"files"`
}

type CreateFileRequest struct {
	Name string `json:"filename"`
}

type UploadFileRequest struct {
	Name    string               `json:"filename"`
	Content sharedTypes.Snapshot `json:"content"`
}

type CreateFileResponse struct {
	file.IdField
}

type GrantAccessRequest struct {
	UserId sharedTypes.UUID           `json:"userID"`
	Level  sharedTypes.PrivilegeLevel `json:"access"`
}

type GrantAccessResponse struct {
	user.WithPublicInfo
}

type RevokeAccessRequest struct {
	UserId sharedTypes.UUID `json:"userID"`
}

type GetAccessDetailsResponse struct {
	file.AccessDetails
}

type SaveVersionResponse struct {
	Version sharedTypes.Version `json:"version"`
}

type ListVersionsResponse struct {
	Versions []version.Meta `json:"versions"`
}

type GetVersionResponse struct {
	version.Full
}

type CompareVersionResponse struct {
	Diff []lineDiff.RefinedEntry `json:"diff"`
}
