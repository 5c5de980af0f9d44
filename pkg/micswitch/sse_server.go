package micswitch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	eventsource "github.com/stalexteam/eventsource_go"
	"go.uber.org/zap"
)

// SseServer streams audio events to local clients and serves the JSON command API
type SseServer struct {
	micswitch *MicSwitch
	logger    *zap.SugaredLogger

	// guards server, stopChannel and currentPort. Start and Stop hold it throughout
	lock        sync.Mutex
	server      *http.Server
	stopChannel chan bool
	currentPort int

	running int32 // 1 = running, 0 = stopped

	manager *eventsource.ConnectionManager

	// id field of outgoing events
	eventID int64

	forwarding sync.Once
}

const (
	// retry timeout sent to new clients, in milliseconds
	sseRetryTimeout = 3000

	pingInterval = 10 * time.Second

	eventsPath = "/events"

	sseEventPing = "ping"
)

// NewSseServer creates a new SSE server instance
func NewSseServer(m *MicSwitch, logger *zap.SugaredLogger) *SseServer {
	logger = logger.Named("sse_server")

	manager := eventsource.NewConnectionManager()

	manager.SetOnConnect(func(encoder *eventsource.Encoder) {
		logger.Infow("New SSE client connected",
			"remote", encoder.RemoteAddr(),
			"path", encoder.Path())
	})

	manager.SetOnDisconnect(func(encoder *eventsource.Encoder) {
		logger.Debugw("SSE client disconnected",
			"remote", encoder.RemoteAddr(),
			"path", encoder.Path())
	})

	srv := &SseServer{
		micswitch:   m,
		logger:      logger,
		stopChannel: make(chan bool),
		manager:     manager,
	}

	logger.Debug("Created SSE server instance")

	return srv
}

// Start starts the server on the configured port. It is a no-op when the port is 0
// or the server already listens on it, and restarts the server when the port changed
func (srv *SseServer) Start() error {
	port := srv.micswitch.config.Snapshot().SsePort

	srv.lock.Lock()
	defer srv.lock.Unlock()

	if srv.IsRunning() && srv.currentPort == port {
		srv.logger.Debugw("SSE server already running on the same port", "port", port)
		return nil
	}

	// also covers a server whose listener failed, so its ping loop and clients are released
	if srv.server != nil {
		srv.logger.Infow("Restarting SSE server", "old_port", srv.currentPort, "new_port", port)
		srv.stopLocked()
	}

	if port <= 0 {
		srv.logger.Debug("sse_port not configured, server will not start")
		return nil
	}

	srv.forwarding.Do(srv.forwardAudioEvents)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	server := &http.Server{
		Addr:    addr,
		Handler: srv.routes(),
	}

	srv.server = server
	srv.currentPort = port
	atomic.StoreInt32(&srv.running, 1)

	go func() {
		srv.logger.Infow("Starting SSE server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.logger.Errorw("SSE server error", "error", err)
			atomic.StoreInt32(&srv.running, 0)
		}
	}()

	go srv.pingLoop(srv.stopChannel)

	return nil
}

// Stop stops the server and disconnects every client
func (srv *SseServer) Stop() {
	srv.lock.Lock()
	defer srv.lock.Unlock()

	srv.stopLocked()
}

func (srv *SseServer) stopLocked() {
	if srv.server == nil {
		return
	}

	srv.logger.Debug("Stopping SSE server")

	// closing releases every stream handler and the ping loop at once
	close(srv.stopChannel)

	srv.manager.CloseAll()
	srv.logger.Debugw("Closed all SSE connections", "count", srv.manager.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.server.Shutdown(ctx); err != nil {
		srv.logger.Warnw("Error during SSE server shutdown", "error", err)
		srv.server.Close()
	}

	atomic.StoreInt32(&srv.running, 0)
	srv.server = nil
	srv.stopChannel = make(chan bool)
	srv.currentPort = 0

	srv.logger.Info("SSE server stopped")
}

// IsRunning returns whether the server is currently running
func (srv *SseServer) IsRunning() bool {
	return atomic.LoadInt32(&srv.running) == 1
}

// Broadcast sends an audio event to all connected clients
func (srv *SseServer) Broadcast(event AudioEvent) {
	if !srv.IsRunning() {
		return
	}

	sseEvent, err := srv.encodeAudioEvent(event)
	if err != nil {
		srv.logger.Warnw("Failed to encode audio event for broadcast", "error", err, "event", event)
		return
	}

	if err := srv.manager.Broadcast(sseEvent); err != nil {
		if eventsource.IsConnectionError(err) {
			srv.logger.Debugw("Some connections failed during broadcast", "error", err)
		}
	}
}

// routes binds stream handlers to the current stopChannel. Callers hold srv.lock or own srv exclusively
func (srv *SseServer) routes() http.Handler {
	stopChannel := srv.stopChannel

	handler := eventsource.HandlerV2(func(
		info *eventsource.ConnectionInfo,
		encoder *eventsource.Encoder,
		stop <-chan bool,
	) {
		srv.serveStream(encoder, stop, stopChannel)
	})

	mux := http.NewServeMux()
	mux.HandleFunc(eventsPath, eventsource.HandlerWithManager(srv.manager, handler).ServeHTTP)
	srv.registerAPI(mux)

	return mux
}

func (srv *SseServer) serveStream(encoder *eventsource.Encoder, stop <-chan bool, serverStop <-chan bool) {
	if err := encoder.SetRetry(sseRetryTimeout); err != nil {
		srv.logEncodeError("retry", err)
		return
	}

	if err := encoder.Encode(srv.pingEvent()); err != nil {
		srv.logEncodeError("ping", err)
		return
	}

	// new clients start from the current input device
	if current, ok := srv.micswitch.audio.CurrentDevice(true); ok {
		snapshot, err := srv.encodeAudioEvent(inputDeviceChangedEvent(current))
		if err != nil {
			srv.logger.Warnw("Failed to encode device snapshot", "error", err)
			return
		}

		if err := encoder.Encode(snapshot); err != nil {
			srv.logEncodeError("snapshot", err)
			return
		}
	}

	select {
	case <-stop:
	case <-serverStop:
	}
}

// forwardAudioEvents relays every boundary event to connected clients until micswitch stops
func (srv *SseServer) forwardAudioEvents() {
	events := srv.micswitch.SubscribeToAudioEvents()

	go func() {
		for event := range events {
			srv.Broadcast(event)
		}

		srv.logger.Debug("Audio events channel closed, no longer forwarding")
	}()
}

func (srv *SseServer) encodeAudioEvent(event AudioEvent) (eventsource.Event, error) {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return eventsource.Event{}, fmt.Errorf("marshal %s payload: %w", event.Name, err)
	}

	return eventsource.Event{
		ID:   srv.nextEventID(),
		Type: event.Name,
		Data: data,
	}, nil
}

func (srv *SseServer) pingEvent() eventsource.Event {
	return eventsource.Event{
		ID:   srv.nextEventID(),
		Type: sseEventPing,
		Data: []byte("{}"),
	}
}

func (srv *SseServer) nextEventID() string {
	return fmt.Sprintf("%d", atomic.AddInt64(&srv.eventID, 1))
}

func (srv *SseServer) logEncodeError(what string, err error) {
	if eventsource.IsConnectionError(err) {
		srv.logger.Debugw("Error sending "+what+", connection closed", "error", err)
	} else {
		srv.logger.Debugw("Error sending "+what, "error", err)
	}
}

// pingLoop sends ping events periodically to all clients until stopChannel is closed
func (srv *SseServer) pingLoop(stopChannel <-chan bool) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChannel:
			return
		case <-ticker.C:
			if !srv.IsRunning() {
				return
			}

			if err := srv.manager.Broadcast(srv.pingEvent()); err != nil {
				if eventsource.IsConnectionError(err) {
					srv.logger.Debugw("Some connections failed during ping broadcast", "error", err)
				}
			}
		}
	}
}
