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
	"github.com/das7pad/codelive/pkg/sharedTypes"
	"github.com/das7pad/codelive/services/web/pkg/managers/web"
	"github.com/das7pad/codelive/services/web/pkg/types"
)

func newHttpController(wm web.Manager) httpController {
	return httpController{wm: wm}
}

type httpController struct {
	wm web.Manager
}

func (h *httpController) GetRouter() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/status", h.status)
	router.
		NewRoute().
		Methods(http.MethodPost).
		Path("/register").
		HandlerFunc(h.registerUser)
	router.
		NewRoute().
		Methods(http.MethodPost).
		Path("/login").
		HandlerFunc(h.loginUser)

	userRouter := router.
		PathPrefix("/user").
		Subrouter()
	userRouter.Use(requireUser)
	userRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/files").
		HandlerFunc(h.listFiles)
	userRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/files").
		HandlerFunc(h.createFile)
	userRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/files/upload").
		HandlerFunc(h.uploadFile)

	fileRouter := router.
		PathPrefix("/file/{fileId}").
		Subrouter()
	fileRouter.Use(validateAndSetId("fileId"))
	fileRouter.Use(requireUser)
	fileRouter.
		NewRoute().
		Methods(http.MethodDelete).
		Path("").
		HandlerFunc(h.deleteFile)
	fileRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/access").
		HandlerFunc(h.getAccessDetails)
	fileRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/grant").
		HandlerFunc(h.grantAccess)
	fileRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/revoke").
		HandlerFunc(h.revokeAccess)
	fileRouter.
		NewRoute().
		Methods(http.MethodPost).
		Path("/versions").
		HandlerFunc(h.saveVersion)
	fileRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/versions").
		HandlerFunc(h.listVersions)
	fileRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/versions/{version}").
		HandlerFunc(h.getVersion)
	fileRouter.
		NewRoute().
		Methods(http.MethodDelete).
		Path("/versions/{version}").
		HandlerFunc(h.deleteVersion)
	fileRouter.
		NewRoute().
		Methods(http.MethodGet).
		Path("/versions/{version}/compare").
		HandlerFunc(h.compareVersion)

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

// requireUser parses the userID header. The login response carries the id;
// clients replay it on every request.
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

func getVersionNumber(r *http.Request) (sharedTypes.Version, error) {
	var v sharedTypes.Version
	if err := v.ParseIfSet(mux.Vars(r)["version"]); err != nil || v <= 0 {
		return 0, &errors.ValidationError{Msg: "invalid version"}
	}
	return v, nil
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
	_, _ = w.Write([]byte("web is alive (go)\n"))
}

func (h *httpController) checkAccess(r *http.Request, minLevel sharedTypes.PrivilegeLevel) error {
	details, err := h.wm.GetAccessDetails(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
	)
	if err != nil {
		return err
	}
	return details.PrivilegeLevel.CheckIsAtLeast(minLevel)
}

func (h *httpController) registerUser(w http.ResponseWriter, r *http.Request) {
	request := types.RegisterUserRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	userId, err := h.wm.RegisterUser(
		r.Context(), request.Username, request.Password,
	)
	body := types.RegisterUserResponse{}
	body.Id = userId
	respond(w, r, http.StatusCreated, body, err, "cannot register user")
}

func (h *httpController) loginUser(w http.ResponseWriter, r *http.Request) {
	request := types.LoginUserRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	userId, err := h.wm.LoginUser(
		r.Context(), request.Username, request.Password,
	)
	body := types.LoginUserResponse{}
	body.Id = userId
	respond(w, r, http.StatusOK, body, err, "cannot login user")
}

func (h *httpController) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.wm.ListFiles(r.Context(), getId(r, "userId"))
	body := types.ListFilesResponse{Files: files}
	respond(w, r, http.StatusOK, body, err, "cannot list files")
}

func (h *httpController) createFile(w http.ResponseWriter, r *http.Request) {
	request := types.CreateFileRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	fileId, err := h.wm.CreateFile(
		r.Context(), getId(r, "userId"), request.Name, nil,
	)
	body := types.CreateFileResponse{}
	body.Id = fileId
	respond(w, r, http.StatusCreated, body, err, "cannot create file")
}

func (h *httpController) uploadFile(w http.ResponseWriter, r *http.Request) {
	request := types.UploadFileRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	fileId, err := h.wm.CreateFile(
		r.Context(), getId(r, "userId"), request.Name, request.Content,
	)
	body := types.CreateFileResponse{}
	body.Id = fileId
	respond(w, r, http.StatusCreated, body, err, "cannot upload file")
}

func (h *httpController) deleteFile(w http.ResponseWriter, r *http.Request) {
	err := h.wm.DeleteFile(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
	)
	respond(w, r, http.StatusNoContent, nil, err, "cannot delete file")
}

func (h *httpController) getAccessDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.wm.GetAccessDetails(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
	)
	body := types.GetAccessDetailsResponse{AccessDetails: details}
	respond(w, r, http.StatusOK, body, err, "cannot get access details")
}

func (h *httpController) grantAccess(w http.ResponseWriter, r *http.Request) {
	request := types.GrantAccessRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	u, err := h.wm.GrantAccess(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
		request.UserId, request.Level,
	)
	response := types.GrantAccessResponse{WithPublicInfo: u}
	respond(w, r, http.StatusOK, response, err, "cannot grant access")
}

func (h *httpController) revokeAccess(w http.ResponseWriter, r *http.Request) {
	request := types.RevokeAccessRequest{}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		errorResponse(w, http.StatusBadRequest, "malformed request")
		return
	}
	err := h.wm.RevokeAccess(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
		request.UserId,
	)
	respond(w, r, http.StatusNoContent, nil, err, "cannot revoke access")
}

func (h *httpController) saveVersion(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelEditor); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check write access")
		return
	}
	v, err := h.wm.SaveVersion(
		r.Context(), getId(r, "fileId"), getId(r, "userId"),
	)
	body := types.SaveVersionResponse{Version: v}
	respond(w, r, http.StatusCreated, body, err, "cannot save version")
}

func (h *httpController) listVersions(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelViewer); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check read access")
		return
	}
	versions, err := h.wm.ListVersions(r.Context(), getId(r, "fileId"))
	body := types.ListVersionsResponse{Versions: versions}
	respond(w, r, http.StatusOK, body, err, "cannot list versions")
}

func (h *httpController) getVersion(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelViewer); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check read access")
		return
	}
	v, err := getVersionNumber(r)
	if err != nil {
		respond(w, r, http.StatusOK, nil, err, "invalid version")
		return
	}
	full, err := h.wm.GetVersion(r.Context(), getId(r, "fileId"), v)
	body := types.GetVersionResponse{Full: full}
	respond(w, r, http.StatusOK, body, err, "cannot get version")
}

func (h *httpController) deleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelOwner); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check owner access")
		return
	}
	v, err := getVersionNumber(r)
	if err != nil {
		respond(w, r, http.StatusOK, nil, err, "invalid version")
		return
	}
	err = h.wm.DeleteVersion(r.Context(), getId(r, "fileId"), v)
	respond(w, r, http.StatusNoContent, nil, err, "cannot delete version")
}

func (h *httpController) compareVersion(w http.ResponseWriter, r *http.Request) {
	if err := h.checkAccess(r, sharedTypes.PrivilegeLevelViewer); err != nil {
		respond(w, r, http.StatusOK, nil, err, "cannot check read access")
		return
	}
	v, err := getVersionNumber(r)
	if err != nil {
		respond(w, r, http.StatusOK, nil, err, "invalid version")
		return
	}
	diff, err := h.wm.CompareWithVersion(
		r.Context(), getId(r, "fileId"), v,
	)
	body := types.CompareVersionResponse{Diff: diff}
	respond(w, r, http.StatusOK, body, err, "cannot compare version")
}
