package micswitch

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestAPI(t *testing.T) (http.Handler, *fakeBackend) {
	t.Helper()

	backend := twoMicsAndSpeakers()
	m, _, _ := newTestMicSwitch(t, backend)

	return m.server.routes(), backend
}

func doRequest(handler http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestAPIListDevices(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doRequest(handler, http.MethodGet, apiDevicesPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", apiDevicesPath, rec.Code)
	}

	var devices []Device
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(devices) != 3 || devices[0].Kind != KindInput || devices[2].Kind != KindOutput {
		t.Errorf("devices = %v", devices)
	}

	if !strings.Contains(rec.Body.String(), `"deviceType":"input"`) {
		t.Errorf("response %s does not use the deviceType field", rec.Body.String())
	}
}

func TestAPICurrentDevice(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(b *fakeBackend)
		wantStatus int
		wantID     ObjectID
	}{
		{"input by default", apiCurrentDevicePath, func(b *fakeBackend) {}, http.StatusOK, 10},
		{"output", apiCurrentDevicePath + "?input=false", func(b *fakeBackend) {}, http.StatusOK, 20},
		{"no input device", apiCurrentDevicePath, func(b *fakeBackend) { b.setDefaults(UnknownObject, 20) }, http.StatusNotFound, 0},
		{"bad flag", apiCurrentDevicePath + "?input=maybe", func(b *fakeBackend) {}, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, backend := newTestAPI(t)
			tt.setup(backend)

			rec := doRequest(handler, http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.target, rec.Code, tt.wantStatus)
			}

			if tt.wantStatus != http.StatusOK {
				var apiErr apiError
				if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil || apiErr.Error == "" {
					t.Errorf("error body = %s, want {\"error\": ...}", rec.Body.String())
				}
				return
			}

			var device Device
			if err := json.Unmarshal(rec.Body.Bytes(), &device); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if device.ID != tt.wantID || !device.IsCurrent {
				t.Errorf("device = %v, want current device %d", device, tt.wantID)
			}
		})
	}
}

func TestAPISetCurrentDevice(t *testing.T) {
	handler, backend := newTestAPI(t)

	rec := doRequest(handler, http.MethodPost, apiCurrentDevicePath, `{"deviceId": 11, "input": true}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("POST %s status = %d, want 204: %s", apiCurrentDevicePath, rec.Code, rec.Body.String())
	}

	if backend.defaultInput != 11 {
		t.Errorf("default input = %d, want 11", backend.defaultInput)
	}

	rec = doRequest(handler, http.MethodPost, apiCurrentDevicePath, `{"deviceId": 99, "input": true}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("POST unknown device status = %d, want 500", rec.Code)
	}
}

func TestAPIMuteDevice(t *testing.T) {
	handler, backend := newTestAPI(t)

	rec := doRequest(handler, http.MethodPost, apiMuteDevicePath, `{"deviceId": 10, "mute": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST %s status = %d, want 200: %s", apiMuteDevicePath, rec.Code, rec.Body.String())
	}

	var device Device
	if err := json.Unmarshal(rec.Body.Bytes(), &device); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if device.ID != 10 || !device.IsMuted {
		t.Errorf("device = %v, want muted device 10", device)
	}
	if !backend.muted(10) {
		t.Error("device 10 not muted")
	}

	rec = doRequest(handler, http.MethodPost, apiMuteDevicePath, `{"deviceId": 20, "mute": true}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("POST mute on output device status = %d, want 500", rec.Code)
	}
}

func TestAPIBadRequests(t *testing.T) {
	handler, _ := newTestAPI(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"list with POST", http.MethodPost, apiDevicesPath, "", http.StatusMethodNotAllowed},
		{"current with DELETE", http.MethodDelete, apiCurrentDevicePath, "", http.StatusMethodNotAllowed},
		{"mute with GET", http.MethodGet, apiMuteDevicePath, "", http.StatusMethodNotAllowed},
		{"malformed JSON", http.MethodPost, apiMuteDevicePath, `{"deviceId":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, apiCurrentDevicePath, `{"device": 10}`, http.StatusBadRequest},
		{"wrong type", http.MethodPost, apiMuteDevicePath, `{"deviceId": "ten"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, tt.method, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestEncodeAudioEvent(t *testing.T) {
	m, _, _ := newTestMicSwitch(t, twoMicsAndSpeakers())

	first, err := m.server.encodeAudioEvent(muteChangedEvent(10, true))
	if err != nil {
		t.Fatalf("encodeAudioEvent() error = %v", err)
	}

	if first.Type != EventMuteChanged {
		t.Errorf("event type = %q, want %q", first.Type, EventMuteChanged)
	}
	if string(first.Data) != `{"deviceId":10,"isMuted":true}` {
		t.Errorf("event data = %s", first.Data)
	}

	second, err := m.server.encodeAudioEvent(inputDeviceChangedEvent(Device{ID: 11, Name: "USB Microphone", Kind: KindInput, IsCurrent: true}))
	if err != nil {
		t.Fatalf("encodeAudioEvent() error = %v", err)
	}

	if second.ID == first.ID {
		t.Errorf("two events share id %s", first.ID)
	}
	if second.Type != EventInputDeviceChanged || !strings.Contains(string(second.Data), `"name":"USB Microphone"`) {
		t.Errorf("event = %s %s", second.Type, second.Data)
	}
}

func TestEventStreamSendsSnapshot(t *testing.T) {
	m, _, _ := newTestMicSwitch(t, twoMicsAndSpeakers())

	ts := httptest.NewServer(m.server.routes())
	defer ts.Close()

	// releases the stream handler so ts.Close doesn't wait on it
	defer close(m.server.stopChannel)

	ctx, cancel := context.WithTimeout(context.Background(), testWait)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+eventsPath, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", eventsPath, err)
	}
	defer resp.Body.Close()

	found := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		sawEvent := false
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "event: "+EventInputDeviceChanged || line == "event:"+EventInputDeviceChanged {
				sawEvent = true
				continue
			}
			if sawEvent && strings.HasPrefix(line, "data:") {
				found <- line
				return
			}
		}
		close(found)
	}()

	select {
	case line, ok := <-found:
		if !ok {
			t.Fatal("stream ended without a device snapshot")
		}
		if !strings.Contains(line, `"id":10`) {
			t.Errorf("snapshot %s is not the current input device", line)
		}
	case <-time.After(testWait):
		t.Fatal("timed out waiting for the device snapshot")
	}
}
