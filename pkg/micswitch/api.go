package micswitch

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	apiDevicesPath        = "/api/devices"
	apiCurrentDevicePath  = "/api/devices/current"
	apiMuteDevicePath     = "/api/devices/mute"
	maxRequestBodyInBytes = 1 << 12
)

type setCurrentDeviceRequest struct {
	DeviceID ObjectID `json:"deviceId"`
	Input    bool     `json:"input"`
}

type muteDeviceRequest struct {
	DeviceID ObjectID `json:"deviceId"`
	Mute     bool     `json:"mute"`
}

type apiError struct {
	Error string `json:"error"`
}

func (srv *SseServer) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc(apiDevicesPath, srv.handleListDevices)
	mux.HandleFunc(apiCurrentDevicePath, srv.handleCurrentDevice)
	mux.HandleFunc(apiMuteDevicePath, srv.handleMuteDevice)
}

// GET /api/devices
func (srv *SseServer) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	srv.writeJSON(w, http.StatusOK, srv.micswitch.audio.ListDevices())
}

// GET  /api/devices/current?input=true|false
// POST /api/devices/current {"deviceId", "input"}
func (srv *SseServer) handleCurrentDevice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		input := true
		if raw := r.URL.Query().Get("input"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				srv.writeError(w, http.StatusBadRequest, "input must be true or false")
				return
			}
			input = parsed
		}

		device, ok := srv.micswitch.audio.CurrentDevice(input)
		if !ok {
			srv.writeError(w, http.StatusNotFound, "no current device")
			return
		}

		srv.writeJSON(w, http.StatusOK, device)

	case http.MethodPost:
		var req setCurrentDeviceRequest
		if !srv.decodeBody(w, r, &req) {
			return
		}

		if err := srv.micswitch.audio.SetCurrentDevice(req.DeviceID, req.Input); err != nil {
			srv.logger.Warnw("API failed to set current device", "request", req, "error", err)
			srv.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.WriteHeader(http.StatusNoContent)

	default:
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// POST /api/devices/mute {"deviceId", "mute"}
func (srv *SseServer) handleMuteDevice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		srv.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req muteDeviceRequest
	if !srv.decodeBody(w, r, &req) {
		return
	}

	device, err := srv.micswitch.audio.MuteDevice(req.DeviceID, req.Mute)
	if err != nil {
		srv.logger.Warnw("API failed to mute device", "request", req, "error", err)
		srv.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	srv.writeJSON(w, http.StatusOK, device)
}

func (srv *SseServer) decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyInBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(into); err != nil {
		srv.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}

	return true
}

func (srv *SseServer) writeJSON(w http.ResponseWriter, status int, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(value); err != nil {
		srv.logger.Debugw("Failed to write API response", "error", err)
	}
}

func (srv *SseServer) writeError(w http.ResponseWriter, status int, message string) {
	srv.writeJSON(w, status, apiError{Error: message})
}
