package main

import (
	"fmt"
	"net/http"

	"github.com/speleodata/shotline/internal/httputil"
	"github.com/speleodata/shotline/internal/pipeline"
)

// statusResponse is the payload of GET /api/status.
type statusResponse struct {
	SessionID    string `json:"session_id"`
	PendingCount int    `json:"pending_count"`
	Firmware     string `json:"firmware,omitempty"`
	BatteryMV    uint16 `json:"battery_mv,omitempty"`
}

// attachAPIRoutes wires the session status and control endpoints.
func attachAPIRoutes(mux *http.ServeMux, session *pipeline.Session) {
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		resp := statusResponse{
			SessionID:    session.ID(),
			PendingCount: session.PendingCount(),
		}
		if info := session.DeviceInfo(); info != nil {
			resp.Firmware = firmwareString(info.FirmwareMajor, info.FirmwareMinor)
			resp.BatteryMV = info.BatteryMillivolt
		}
		httputil.WriteJSONOK(w, resp)
	})

	// Flush ends the smart-mode window: pending readings become splays.
	mux.HandleFunc("/api/flush", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		shots := session.Flush()
		httputil.WriteJSONOK(w, map[string]int{"flushed": len(shots)})
	})

	// Clear abandons pending readings without emitting anything.
	mux.HandleFunc("/api/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		session.Clear()
		httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
	})
}

func firmwareString(major, minor uint8) string {
	return fmt.Sprintf("%d.%d", major, minor)
}
