package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"wasteroute-backend/pkg/utils"
)

type TokenRegistrar interface {
	UpsertFCMToken(ctx context.Context, userID, token, deviceType string, now int64) error
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"` // "ios" or "android"
}

// RegisterFCMToken handles POST /api/me/fcm-token
func RegisterFCMToken(tokens TokenRegistrar) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req RegisterFCMTokenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Token == "" {
			utils.RespondError(w, http.StatusBadRequest, "Token is required")
			return
		}
		if req.DeviceType != "ios" && req.DeviceType != "android" {
			utils.RespondError(w, http.StatusBadRequest, "Device type must be 'ios' or 'android'")
			return
		}

		if err := tokens.UpsertFCMToken(r.Context(), actor.UserID, req.Token, req.DeviceType, time.Now().Unix()); err != nil {
			respondServiceError(w, err)
			return
		}

		log.Printf("📱 FCM token registered for user %s (%s)", actor.UserID, req.DeviceType)
		utils.RespondData(w, http.StatusOK, map[string]string{"message": "Token registered"})
	}
}
