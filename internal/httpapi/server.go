package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/traduttore/internal/capture"
	"github.com/antoniostano/traduttore/internal/config"
	"github.com/antoniostano/traduttore/internal/history"
	"github.com/antoniostano/traduttore/internal/observability"
	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/reliability"
)

// Deps collects the collaborators the HTTP server exposes.
type Deps struct {
	Engine  *pipeline.Engine
	History history.Store
	Metrics *observability.Metrics
	Logger  *log.Logger

	// AudioDir is served under /audio/ for synthesized clips.
	AudioDir string

	TranslateReady *reliability.Gate
	SpeechReady    *reliability.Gate
}

type Server struct {
	cfg            config.Config
	engine         *pipeline.Engine
	store          history.Store
	metrics        *observability.Metrics
	logger         *log.Logger
	audioDir       string
	translateReady *reliability.Gate
	speechReady    *reliability.Gate

	upgrader websocket.Upgrader
	static   http.Handler
	hub      *hub

	mu     sync.Mutex
	source *capture.ChannelSource
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		cfg:            cfg,
		engine:         deps.Engine,
		store:          deps.History,
		metrics:        deps.Metrics,
		logger:         logger,
		audioDir:       deps.AudioDir,
		translateReady: deps.TranslateReady,
		speechReady:    deps.SpeechReady,
		static:         newStaticHandler(),
		hub:            newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive the session if the
				// service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
	if s.engine != nil {
		s.engine.SetOnDisplay(s.broadcastDisplay)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/listener/", http.StatusTemporaryRedirect)
	})
	r.Get("/listener", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/listener/", http.StatusTemporaryRedirect)
	})
	r.Handle("/listener/*", http.StripPrefix("/listener/", s.static))
	if s.audioDir != "" {
		r.Handle("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(s.audioDir))))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/translate/session", s.handleCreateSession)
	r.Post("/v1/translate/session/{id}/end", s.handleEndSession)
	r.Post("/v1/translate/session/{id}/audio", s.handleIngestAudio)
	r.Get("/v1/translate/display", s.handleDisplay)
	r.Patch("/v1/translate/params", s.handleUpdateParams)
	r.Get("/v1/translate/history", s.handleHistory)
	r.Get("/v1/translate/ws", s.handleWS)
	r.Get("/v1/voices", s.handleCatalog)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"session_active": s.engine != nil && s.engine.Active() != nil,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	deps := map[string]bool{}
	ready := true
	if s.translateReady != nil {
		ok := s.translateReady.Check(r.Context())
		deps["translate"] = ok
		ready = ready && ok
	}
	if s.speechReady != nil {
		ok := s.speechReady.Check(r.Context())
		deps["tts"] = ok
		ready = ready && ok
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	respondJSON(w, status, map[string]any{
		"status":       state,
		"dependencies": deps,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.LatencySnapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
