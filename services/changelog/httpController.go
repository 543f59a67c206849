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

package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/das7pad/codelive/pkg/errors"
	"github.com/das7pad/codelive/pkg/models/file"
	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/changelog/pkg/managers/changeLog"
	"github.com/das7pad/codelive/services/changelog/pkg/types"
)

func newHttpController(clm changeLog.Manager, fm file.Manager) httpController {
	return httpController{clm: clm, fm: fm}
}

type httpController struct {
	clm changeLog.Manager
	fm  file.Manager
}

func (h *httpController) GetRouter() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/status", h.status)

	docRouter := router.
		PathPrefix("/doc/{docId}").
		Subrouter()
	docRouter.Use(validateAndSetId("docId"))
	docRouter.Use(requireUser)

	docRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/op").
		HandlerFunc(h.appendOperation)
	docRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/ops").
		HandlerFunc(h.readOperationsSince)
	docRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("").
		HandlerFunc(h.materializeDocument)

	return router
}

func validateAndSetId(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := sharedTypes.ParseUUID(mux.Vars(r)[name])
			if err != nil {
				errorResponse(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			ctx := context.WithValue(r.Context(), name, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireUser parses the userID header every request must carry. Identity is
// established upstream; this service only needs it for the grant check.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId, err := sharedTypes.ParseUUID(r.Header.Get("userID"))
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, "missing userID")
			return
		}
		ctx := context.WithValue(r.Context(), "userId", userId)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getId(r *http.Request, name string) sharedTypes.UUID {
	id := r.Context().Value(name)
	if id == nil {
		// The validation middleware should have blocked this request.
		log.Printf(
			"%s not validated on route %s %s",
			name, r.Method, r.URL.Path,
		)
		panic("broken id validation")
	}
	return id.(sharedTypes.UUID)
}

func errorResponse(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)

	// Flush it and ignore any errors.
	_, _ = w.Write([]byte(message))
}

func respond(
	w http.ResponseWriter,
	r *http.Request,
	code int,
	body interface{},
	err error,
	msg string,
) {
	if err != nil {
		if errors.IsValidationError(err) {
			errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.IsUnauthorizedError(err) {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}
		if errors.IsNotAuthorizedError(err) {
			errorResponse(w, http.StatusForbidden, err.Error())
			return
		}
		if errors.IsNotFoundError(err) {
			errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.IsUnprocessableEntityError(err) {
			errorResponse(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.Printf("%s %s: %s: %v", r.Method, r.URL.Path, msg, err)
		errorResponse(w, http.StatusInternalServerError, msg)
		return
	}
	if body == nil {
		w.WriteHeader(code)
	} else {
		w.Header().Set(
			"Content-Type",
			"application/json; charset=utf-8",
		)
		if code != http.StatusOK {
			w.WriteHeader(code)
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (h *httpController) status(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("changelog is alive (go)\n"))
}

func (h *httpController) checkAccess(r *http.Request, minLevel sharedTypes.PrivilegeLevel) error {
	level, err := h.fm.GetPrivilegeLevel(
		r.Context(), getId(r, "docId"), getId(r, "userId"),
	)
	if err != nil {
		return err
	}
	return level.CheckIsAtLeast(minLevel)
}

func (h *httpController) appendOperation(w http.ResponseWriter, r *http.Request) {
	// Write access is enforced client-side as well; this is the backstop for
	// viewers talking to the API directly.
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelEditor); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check write access")
		return
	}
	request := types.AppendOperationRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed operation")
		return
	}
	seq, err := h.clm.AppendOperation(
		r.Context(),
		getId(r, "docId"),
		getId(r, "userId"),
		request.Operation,
	)
	body := types.AppendOperationResponse{Seq: seq}
	respond(w, r, http.StatusOK, body, err, "cannot append operation")
}

func (h *httpController) readOperationsSince(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelViewer); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check read access")
		return
	}
	var since sharedTypes.Sequence
	if err := since.ParseIfSet(r.URL.Query().Get("since")); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid since")
		return
	}
	ops, err := h.clm.ReadOperationsSince(r.Context(), getId(r, "docId"), since)
	if err == nil && len(ops) == 0 {
		respond(w, r, http.StatusNoContent, nil, nil, "")
		return
	}
	body := types.ReadOperationsSinceResponse{Ops: ops}
	respond(w, r, http.StatusOK, body, err, "cannot read operations")
}

func (h *httpController) materializeDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelViewer); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check read access")
		return
	}
	snapshot, seq, err := h.clm.MaterializeDocument(r.Context(), getId(r, "docId"))
	body := types.MaterializeDocumentResponse{Snapshot: snapshot, Seq: seq}
	respond(w, r, http.StatusOK, body, err, "cannot materialize document")
}
