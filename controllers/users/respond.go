package users

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/CMoments/Online-life/database"
	"github.com/CMoments/Online-life/services"
	"github.com/CMoments/Online-life/utils"

	"github.com/gorilla/mux"
)

var svcInst *services.Services

// svc lazily wires the service layer to the shared DB handle.
func svc() *services.Services {
	if svcInst == nil {
		svcInst = services.New(database.DB)
	}
	return svcInst
}

// SetServices overrides the service bundle, used by tests and by main when a
// non-global DB is wanted.
func SetServices(s *services.Services) {
	svcInst = s
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unknown errors are logged and surface as a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		pe *services.PermissionError
		se *services.StateError
		ce *services.ConflictError
		ib *services.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &ve):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: ve.Error()})
	case errors.As(err, &nf):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: nf.Error()})
	case errors.As(err, &pe):
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: pe.Error()})
	case errors.As(err, &se):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: se.Error()})
	case errors.As(err, &ce):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: ce.Error()})
	case errors.As(err, &ib):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: ib.Error()})
	default:
		log.Printf("[http] unhandled service error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
	}
}

// requireUserID reads the authenticated user from the request context.
func requireUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	uid, ok := utils.GetUserID(r.Context())
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return 0, false
	}
	return uid, true
}

// pathID extracts a numeric {name} route variable.
func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(v), nil
}

// pagination reads ?page= and ?per_page= with sane defaults.
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}
