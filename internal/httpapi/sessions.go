package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/traduttore/internal/audio"
	"github.com/antoniostano/traduttore/internal/capture"
	"github.com/antoniostano/traduttore/internal/pipeline"
)

const sourceBuffer = 64

type createSessionRequest struct {
	SourceLanguage string       `json:"source_language"`
	TargetLanguage string       `json:"target_language"`
	Model          string       `json:"model"`
	Voice          string       `json:"voice"`
	Preset         string       `json:"preset"`
	Params         *paramsPatch `json:"params"`
}

type sessionResponse struct {
	SessionID      string     `json:"session_id"`
	StartedAt      time.Time  `json:"started_at"`
	SourceLanguage string     `json:"source_language"`
	TargetLanguage string     `json:"target_language"`
	Model          string     `json:"model"`
	Voice          string     `json:"voice"`
	Params         paramsView `json:"params"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		respondError(w, http.StatusBadRequest, "missing_target_language", "target_language is required")
		return
	}
	if strings.TrimSpace(req.SourceLanguage) == "" {
		req.SourceLanguage = pipeline.SourceAuto
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = s.cfg.TranslateModel
	}
	if strings.TrimSpace(req.Voice) == "" {
		req.Voice = s.cfg.TTSVoice
	}

	params := s.baseParams()
	if req.Preset != "" {
		p, ok := pipeline.PresetParams(req.Preset)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown_preset", "unknown preset: "+req.Preset)
			return
		}
		params = p
	}
	if req.Params != nil {
		params = req.Params.apply(params)
	}

	source := capture.NewChannelSource(sourceBuffer)
	sess, err := s.engine.Start(context.Background(), source, pipeline.SessionOptions{
		SourceLang: req.SourceLanguage,
		TargetLang: req.TargetLanguage,
		Model:      req.Model,
		Voice:      req.Voice,
		Params:     params,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionActive) {
			respondError(w, http.StatusConflict, "session_active", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_session", err.Error())
		return
	}

	s.mu.Lock()
	s.source = source
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, sessionView(sess))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := s.engine.Active()
	if sess == nil || sess.ID() != id {
		respondError(w, http.StatusNotFound, "session_not_found", "no active session with id "+id)
		return
	}

	sess.Stop()
	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID(),
		"status":     "ended",
	})
}

type ingestRequest struct {
	PCM16Base64 string `json:"pcm16_base64"`
	SampleRate  int    `json:"sample_rate"`
}

func (s *Server) handleIngestAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := s.engine.Active()
	if sess == nil || sess.ID() != id {
		respondError(w, http.StatusNotFound, "session_not_found", "no active session with id "+id)
		return
	}

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	samples, err := decodePCMChunk(req.PCM16Base64, req.SampleRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
		return
	}

	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		respondError(w, http.StatusConflict, "source_closed", "session accepts no more audio")
		return
	}
	if err := source.Push(samples, req.SampleRate); err != nil {
		respondError(w, http.StatusConflict, "source_closed", err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{"samples": len(samples)})
}

func (s *Server) handleDisplay(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Display())
}

func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	sess := s.engine.Active()
	if sess == nil {
		respondError(w, http.StatusNotFound, "no_active_session", "no translation session is running")
		return
	}

	var patch paramsPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	params := sess.Options().Params
	if patch.Preset != "" {
		p, ok := pipeline.PresetParams(patch.Preset)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown_preset", "unknown preset: "+patch.Preset)
			return
		}
		params = p
	}
	params = patch.apply(params)

	if err := sess.UpdateParams(params); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_params", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, viewParams(params))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondJSON(w, http.StatusOK, map[string]any{"records": []any{}})
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.store.Recent(r.Context(), sessionID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) baseParams() pipeline.Params {
	p := pipeline.DefaultParams()
	p.BlockDuration = s.cfg.BlockDuration
	p.MinSilence = s.cfg.MinSilence
	p.MinSpeech = s.cfg.MinSpeech
	p.MaxSpeech = s.cfg.MaxSpeech
	p.Overlap = s.cfg.Overlap
	p.MaxBuffer = s.cfg.MaxBuffer
	p.PoolSize = s.cfg.PoolSize
	p.SpeechDelay = s.cfg.AudioOutputDelay
	return p
}

func sessionView(sess *pipeline.Session) sessionResponse {
	opts := sess.Options()
	return sessionResponse{
		SessionID:      sess.ID(),
		StartedAt:      sess.StartedAt(),
		SourceLanguage: opts.SourceLang,
		TargetLanguage: opts.TargetLang,
		Model:          opts.Model,
		Voice:          opts.Voice,
		Params:         viewParams(opts.Params),
	}
}

func decodePCMChunk(encoded string, sampleRate int) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample_rate must be positive")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("pcm16_base64 is not valid base64")
	}
	if len(raw) == 0 {
		return nil, errors.New("empty audio chunk")
	}
	if len(raw)%2 != 0 {
		return nil, errors.New("pcm16 payload must contain whole samples")
	}
	return audio.PCM16LEToFloat32(raw), nil
}

// paramsPatch carries optional overrides for segmentation and pipeline
// tuning. Durations are milliseconds.
type paramsPatch struct {
	Preset        string   `json:"preset"`
	BlockMS       *int     `json:"block_ms"`
	MinSilenceMS  *int     `json:"min_silence_ms"`
	MinSpeechMS   *int     `json:"min_speech_ms"`
	MaxSpeechMS   *int     `json:"max_speech_ms"`
	OverlapMS     *int     `json:"overlap_ms"`
	MaxBufferMS   *int     `json:"max_buffer_ms"`
	PoolSize      *int     `json:"pool_size"`
	SpeechDelayMS *int     `json:"speech_delay_ms"`
	EnergyFloor   *float64 `json:"energy_floor"`
}

func (p paramsPatch) apply(base pipeline.Params) pipeline.Params {
	setMS := func(dst *time.Duration, v *int) {
		if v != nil {
			*dst = time.Duration(*v) * time.Millisecond
		}
	}
	setMS(&base.BlockDuration, p.BlockMS)
	setMS(&base.MinSilence, p.MinSilenceMS)
	setMS(&base.MinSpeech, p.MinSpeechMS)
	setMS(&base.MaxSpeech, p.MaxSpeechMS)
	setMS(&base.Overlap, p.OverlapMS)
	setMS(&base.MaxBuffer, p.MaxBufferMS)
	setMS(&base.SpeechDelay, p.SpeechDelayMS)
	if p.PoolSize != nil {
		base.PoolSize = *p.PoolSize
	}
	if p.EnergyFloor != nil {
		base.EnergyFloor = float32(*p.EnergyFloor)
	}
	return base
}

type paramsView struct {
	BlockMS       int     `json:"block_ms"`
	MinSilenceMS  int     `json:"min_silence_ms"`
	MinSpeechMS   int     `json:"min_speech_ms"`
	MaxSpeechMS   int     `json:"max_speech_ms"`
	OverlapMS     int     `json:"overlap_ms"`
	MaxBufferMS   int     `json:"max_buffer_ms"`
	PoolSize      int     `json:"pool_size"`
	SpeechDelayMS int     `json:"speech_delay_ms"`
	EnergyFloor   float64 `json:"energy_floor"`
}

func viewParams(p pipeline.Params) paramsView {
	return paramsView{
		BlockMS:       int(p.BlockDuration / time.Millisecond),
		MinSilenceMS:  int(p.MinSilence / time.Millisecond),
		MinSpeechMS:   int(p.MinSpeech / time.Millisecond),
		MaxSpeechMS:   int(p.MaxSpeech / time.Millisecond),
		OverlapMS:     int(p.Overlap / time.Millisecond),
		MaxBufferMS:   int(p.MaxBuffer / time.Millisecond),
		PoolSize:      p.PoolSize,
		SpeechDelayMS: int(p.SpeechDelay / time.Millisecond),
		EnergyFloor:   float64(p.EnergyFloor),
	}
}
