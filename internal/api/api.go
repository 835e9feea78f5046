// Package api exposes the HTTP/WebSocket control surface spec.md §6
// names as an external collaborator: get/set layout, brightness,
// pattern, schedule, and power ceiling, plus status and diagnostics
// feeds. Grounded on the teacher's internal/ws.State (ServeMux + CORS
// wrapper, one goroutine-backed websocket per concern) and
// internal/diagnostics.Diagnostic for the /diag feed shape, but
// rewired so every write lands on the Arbiter instead of a local
// struct the render loop reads directly.
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/ledpanel/internal/arbiter"
	diag "github.com/coreman2200/ledpanel/internal/diagnostics"
	"github.com/coreman2200/ledpanel/internal/layout"
	"github.com/coreman2200/ledpanel/internal/pattern"
	"github.com/coreman2200/ledpanel/internal/status"
	"github.com/coreman2200/ledpanel/internal/telemetry"
)

// Server wires the control surface to an Arbiter, a pattern Registry
// for name validation/listing, the Status publisher, and an optional
// telemetry Sampler.
type Server struct {
	arb       *arbiter.Arbiter
	reg       *pattern.Registry
	statusP   *status.Publisher
	telemetry *telemetry.Sampler
	log       zerolog.Logger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	diagClients map[*websocket.Conn]bool
	lastErr     string
}

// NewServer returns a Server ready to be mounted with Routes.
func NewServer(arb *arbiter.Arbiter, reg *pattern.Registry, statusP *status.Publisher, telem *telemetry.Sampler, log zerolog.Logger) *Server {
	return &Server{
		arb:         arb,
		reg:         reg,
		statusP:     statusP,
		telemetry:   telem,
		log:         log,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		diagClients: map[*websocket.Conn]bool{},
	}
}

// Routes returns the CORS-wrapped mux to mount on an *http.Server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/layout", s.handleLayout)
	mux.HandleFunc("/brightness", s.handleBrightness)
	mux.HandleFunc("/pattern", s.handlePattern)
	mux.HandleFunc("/patterns", s.handlePatternList)
	mux.HandleFunc("/schedule", s.handleSchedule)
	mux.HandleFunc("/power", s.handlePower)
	mux.HandleFunc("/ws", s.handleStatusWS)
	mux.HandleFunc("/diag", s.handleDiagWS)
	mux.HandleFunc("/control", s.handleControlWS)
	return withCORS(mux)
}

// PollDiagnostics watches Status for LastError transitions and pushes a
// Diagnostic to /diag subscribers whenever a new failure appears. Run
// as a goroutine alongside the HTTP server.
func (s *Server) PollDiagnostics(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		cur := s.statusP.Current().LastError
		s.mu.Lock()
		changed := cur != "" && cur != s.lastErr
		s.lastErr = cur
		s.mu.Unlock()
		if changed {
			s.pushDiag(diag.Diagnostic{
				Severity: diag.Warn,
				Code:     "PATTERN.FAILURE",
				Summary:  "pattern generator failed, reverted to external input",
				Detail:   cur,
			})
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.arb.Current()
	w2, h2 := snap.CanvasSize()
	writeJSON(w, map[string]any{
		"uptime_ok":  true,
		"canvas":     map[string]int{"w": w2, "h": h2},
		"led_count":  snap.LEDCount(),
		"schedule":   snap.Schedule.String(),
		"generation": snap.LayoutGeneration(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusP.Current())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.arb.Current().Layout)
	case http.MethodPut:
		var desc layout.Description
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.arb.SetLayout(desc); err != nil {
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, s.arb.Current().Layout)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.arb.SetBrightness(body.Value); err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePattern(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Internal bool               `json:"internal"`
		Name     string             `json:"name"`
		Params   map[string]float64 `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	sel := pattern.External
	if body.Internal {
		sel = pattern.Internal(body.Name, pattern.Params(body.Params))
	}
	if err := s.arb.SetPattern(sel, s.reg); err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatternList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.List())
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	switch body.State {
	case "awake":
		s.arb.SetSchedule(arbiter.Awake)
	case "asleep":
		s.arb.SetSchedule(arbiter.Asleep)
	default:
		httpError(w, http.StatusBadRequest, errInvalidScheduleState)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		CeilingAmps float64 `json:"ceiling_amps"`
		Enabled     bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.arb.SetPowerCeiling(body.CeilingAmps, body.Enabled); err != nil {
		httpError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatusWS streams the Status snapshot (and, when present, the
// latest telemetry reading) to subscribers at a fixed cadence. The
// control surface never has direct access to rendered pixel data —
// that stays inside the controller/driver pipeline — so this is the
// status/telemetry analogue of the teacher's raw frame feed.
func (s *Server) handleStatusWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		payload := map[string]any{"status": s.statusP.Current()}
		if s.telemetry != nil {
			payload["telemetry"] = s.telemetry.Last()
		}
		b, _ := json.Marshal(payload)
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func (s *Server) handleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.diagClients, conn)
		s.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// handleControlWS accepts the brightness, pattern, schedule, and power
// verbs of the REST handlers as JSON messages, for clients that want one
// persistent connection instead of discrete requests. Layout and status
// are served over REST only.
func (s *Server) handleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg struct {
			Op          string             `json:"op"`
			Brightness  int                `json:"brightness"`
			Internal    bool               `json:"internal"`
			Name        string             `json:"name"`
			Params      map[string]float64 `json:"params"`
			State       string             `json:"state"`
			CeilingAmps float64            `json:"ceiling_amps"`
			Enabled     bool               `json:"enabled"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		var opErr error
		switch msg.Op {
		case "brightness":
			opErr = s.arb.SetBrightness(msg.Brightness)
		case "pattern":
			sel := pattern.External
			if msg.Internal {
				sel = pattern.Internal(msg.Name, pattern.Params(msg.Params))
			}
			opErr = s.arb.SetPattern(sel, s.reg)
		case "schedule":
			if msg.State == "asleep" {
				s.arb.SetSchedule(arbiter.Asleep)
			} else {
				s.arb.SetSchedule(arbiter.Awake)
			}
		case "power":
			opErr = s.arb.SetPowerCeiling(msg.CeilingAmps, msg.Enabled)
		default:
			opErr = errUnknownControlOp
		}
		ack := map[string]any{"op": msg.Op, "ok": opErr == nil}
		if opErr != nil {
			ack["error"] = opErr.Error()
		}
		b, _ := json.Marshal(ack)
		conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
}

func (s *Server) pushDiag(d diag.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("diag push failed")
		}
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var errInvalidScheduleState = jsonErr("state must be \"awake\" or \"asleep\"")
var errUnknownControlOp = jsonErr("unknown op")

type jsonErr string

func (e jsonErr) Error() string { return string(e) }
