package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"wasteroute-backend/internal/middleware"
	"wasteroute-backend/internal/models"
	"wasteroute-backend/internal/services"
	"wasteroute-backend/pkg/utils"
)

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
// Transition errors are passed through verbatim so the caller can decide
// whether to refresh and retry.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		notFound    *models.NotFoundError
		invalidRole *models.InvalidRoleError
		notAssigned *models.NotAssignedError
		duplicate   *models.DuplicateActiveLogError
		stale       *models.StaleStateError
		geometry    *models.InvalidGeometryError
		validation  *models.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		utils.RespondErrorCode(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &invalidRole):
		utils.RespondErrorCode(w, http.StatusForbidden, "invalid_role", err.Error())
	case errors.As(err, &notAssigned):
		utils.RespondErrorCode(w, http.StatusForbidden, "not_assigned", err.Error())
	case errors.As(err, &duplicate):
		utils.RespondErrorCode(w, http.StatusConflict, "duplicate_active_log", err.Error())
	case errors.As(err, &stale):
		utils.RespondErrorCode(w, http.StatusConflict, "stale_state", err.Error())
	case errors.As(err, &geometry):
		utils.RespondErrorCode(w, http.StatusUnprocessableEntity, "invalid_geometry", err.Error())
	case errors.As(err, &validation):
		utils.RespondErrorCode(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		log.Printf("❌ Error: %v", err)
		utils.RespondErrorCode(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// actorFromRequest reads the authenticated user set by middleware.Auth
func actorFromRequest(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	userClaims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return services.Actor{}, false
	}
	return services.Actor{UserID: userClaims.UserID, Role: userClaims.Role}, true
}

// Request bodies are small JSON documents; images are never uploaded here
const maxBodyBytes = 64 << 10

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Printf("❌ Request body over %d bytes", tooLarge.Limit)
			utils.RespondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		log.Printf("❌ Invalid request body: %v", err)
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// canViewCollector lets a collector see only their own data; admins see everyone's
func canViewCollector(actor services.Actor, collectorID string) bool {
	return actor.Role == models.RoleAdmin || (actor.Role == models.RoleCollector && actor.UserID == collectorID)
}
