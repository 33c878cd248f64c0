// internal/app/features/workgroups/handler.go
package workgroups

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/mdregistry/internal/app/policy/workgrouppolicy"
	"github.com/dalemusser/mdregistry/internal/app/registry"
	"github.com/dalemusser/mdregistry/internal/app/system/auth"
	"github.com/dalemusser/mdregistry/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the workgroup JSON endpoints. All rules live in the
// registry service; handlers parse, call, and translate errors.
type Handler struct {
	Svc      *registry.Service
	PageSize int
	Log      *zap.Logger
}

// NewHandler constructs a workgroups Handler. pageSize is the item listing
// default used when a request carries no usable "pp" value.
func NewHandler(svc *registry.Service, pageSize int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Svc: svc, PageSize: pageSize, Log: logger}
}

// actorFrom builds the policy actor for the signed-in user. A session whose
// id is not an ObjectID is treated as anonymous.
func actorFrom(r *http.Request) workgrouppolicy.Actor {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return workgrouppolicy.Anonymous()
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return workgrouppolicy.Anonymous()
	}
	return workgrouppolicy.Actor{
		UserID:        id,
		Name:          u.Name,
		Authenticated: true,
		Capabilities:  u.Capabilities,
	}
}

// workgroupID parses the {id} URL parameter, answering 400 itself when it is
// malformed.
func workgroupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad workgroup id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseForm parses the request form, answering 413 when the body ran past
// the limits.Body cap and 400 for any other malformed form.
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseForm()
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeError(w, http.StatusRequestEntityTooLarge, "request too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "bad form")
	return false
}

// fail maps a registry error onto an HTTP status. Unrecognized errors are
// logged and reported as 500 without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrWorkgroupArchived):
		writeError(w, http.StatusConflict, "workgroup is archived")
	default:
		h.Log.Error(op+" failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
