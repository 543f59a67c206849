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
	"github.com/das7pad/codelive/pkg/sharedTypes"
)

type AppendOperationRequest struct {
	sharedTypes.Operation
}

type AppendOperationResponse struct {
	Seq sharedTypes.Sequence `json:"modID"`
}

type ReadOperationsSinceResponse struct {
	Ops sharedTypes.Operations `json:"updates"`
}

type MaterializeDocumentResponse struct {
	Snapshot sharedTypes.Snapshot `json:"content"`
	Seq      sharedTypes.Sequence `json:"modID"`
}
