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

// Package editor is the Go client for the changelog service: a transport, a
// reconciler turning widget changes into operations and back, and a polling
// session keeping a local buffer in sync.
package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/changelog/pkg/types"
)

// Transport is the pull-only boundary to the authoritative log.
type Transport interface {
	AppendOperation(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error)
	ReadOperationsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error)
	MaterializeDocument(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error)
}

type ClientOptions struct {
	BaseURL string
	UserId  sharedTypes.UUID
	Cipher  Cipher
	Client  *http.Client
}

func NewClient(o ClientOptions) Transport {
	if o.Cipher == nil {
		o.Cipher = NoopCipher
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	return &client{options: o}
}

type client struct {
	options ClientOptions
}

func (c *client) do(ctx context.Context, method, url string, body interface{}, target interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return 0, errors.Tag(err, "serialize request")
		}
		if blob, err = c.options.Cipher.Encrypt(blob); err != nil {
			return 0, errors.Tag(err, "encrypt request")
		}
		reader = bytes.NewReader(blob)
	}
	r, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	r.Header.Set("userID", c.options.UserId.String())
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	res, err := c.options.Client.Do(r)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()
	switch res.StatusCode {
	case http.StatusOK:
		if target == nil {
			return res.StatusCode, nil
		}
		blob, err2 := io.ReadAll(res.Body)
		if err2 != nil {
			return res.StatusCode, errors.Tag(err2, "read response")
		}
		if blob, err2 = c.options.Cipher.Decrypt(blob); err2 != nil {
			return res.StatusCode, errors.Tag(err2, "decrypt response")
		}
		if err2 = json.Unmarshal(blob, target); err2 != nil {
			return res.StatusCode, errors.Tag(err2, "parse response")
		}
		return res.StatusCode, nil
	case http.StatusNoContent:
		return res.StatusCode, nil
	case http.StatusBadRequest:
		return res.StatusCode, &errors.ValidationError{Msg: "rejected"}
	case http.StatusUnauthorized:
		return res.StatusCode, &errors.UnauthorizedError{Reason: "rejected"}
	case http.StatusForbidden:
		return res.StatusCode, &errors.NotAuthorizedError{}
	case http.StatusNotFound:
		return res.StatusCode, &errors.NotFoundError{}
	default:
		return res.StatusCode, errors.New(
			"unexpected status: " + res.Status,
		)
	}
}

func (c *client) AppendOperation(ctx context.Context, docId sharedTypes.UUID, op sharedTypes.Operation) (sharedTypes.Sequence, error) {
	url := c.options.BaseURL + "/doc/" + docId.String() + "/op"
	response := types.AppendOperationResponse{}
	request := types.AppendOperationRequest{Operation: op}
	_, err := c.do(ctx, http.MethodPost, url, request, &response)
	if err != nil {
		return 0, err
	}
	return response.Seq, nil
}

func (c *client) ReadOperationsSince(ctx context.Context, docId sharedTypes.UUID, since sharedTypes.Sequence) (sharedTypes.Operations, error) {
	url := c.options.BaseURL + "/doc/" + docId.String() +
		"/ops?since=" + since.String()
	response := types.ReadOperationsSinceResponse{}
	code, err := c.do(ctx, http.MethodGet, url, nil, &response)
	if err != nil {
		return nil, err
	}
	if code == http.StatusNoContent {
		return nil, nil
	}
	return response.Ops, nil
}

func (c *client) MaterializeDocument(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.Snapshot, sharedTypes.Sequence, error) {
	url := c.options.BaseURL + "/doc/" + docId.String()
	response := types.MaterializeDocumentResponse{}
	_, err := c.do(ctx, http.MethodGet, url, nil, &response)
	if err != nil {
		return nil, 0, err
	}
	return response.Snapshot, response.Seq, nil
}
