package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"wasteroute-backend/internal/services"
	"wasteroute-backend/pkg/utils"
)

// DiagnosticLog represents a diagnostic log from the mobile app
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Platform  string                 `json:"platform"`
}

// ReceiveDiagnosticLog handles POST /api/logs/diagnostic from the citizen and collector apps
func ReceiveDiagnosticLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var logEntry DiagnosticLog
		if !decodeBody(w, r, &logEntry) {
			return
		}

		prefix := "📱"
		switch logEntry.Level {
		case "ERROR":
			prefix = "🔴"
		case "WARNING":
			prefix = "🟡"
		case "INFO":
			prefix = "🔵"
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("%s MOBILE DIAGNOSTIC [%s] from %s (%s)", prefix, logEntry.Level, actor.UserID, actor.Role)
		log.Printf("   Platform:  %s", logEntry.Platform)
		log.Printf("   Context:   %s", logEntry.Context)
		log.Printf("   Timestamp: %s", logEntry.Timestamp)
		log.Printf("   Message:   %s", logEntry.Message)

		if len(logEntry.Data) > 0 {
			log.Println("   Data:")
			dataJSON, err := json.MarshalIndent(logEntry.Data, "      ", "  ")
			if err == nil {
				log.Printf("      %s", string(dataJSON))
			}
		}
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		utils.RespondData(w, http.StatusOK, map[string]string{"status": "received"})
	}
}

type ClientCounter interface {
	GetClientCount() int
}

type BrokerStatus interface {
	IsConnected() bool
}

type GeocodeCacheReporter interface {
	Stats() services.GeocodeCacheStats
}

// SystemStatus reports on the optional integrations. Any of them may be nil
// when it is not configured.
type SystemStatus struct {
	Clients      ClientCounter
	Broker       BrokerStatus
	GeocodeCache GeocodeCacheReporter
	PushEnabled  bool
}

// GetSystemStatus handles GET /api/admin/status
func GetSystemStatus(status SystemStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"push_notifications": status.PushEnabled,
			"event_broker":       "disabled",
		}
		if status.Clients != nil {
			data["websocket_clients"] = status.Clients.GetClientCount()
		}
		if status.Broker != nil {
			if status.Broker.IsConnected() {
				data["event_broker"] = "connected"
			} else {
				data["event_broker"] = "disconnected"
			}
		}
		if status.GeocodeCache != nil {
			data["geocode_cache"] = status.GeocodeCache.Stats()
		}

		utils.RespondData(w, http.StatusOK, data)
	}
}
