package httpapi

import (
	"net/http"

	"github.com/antoniostano/traduttore/internal/language"
	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/synth"
)

type catalogResponse struct {
	Voices          []string `json:"voices"`
	DefaultVoice    string   `json:"default_voice"`
	Presets         []string `json:"presets"`
	SourceLanguages []string `json:"source_languages"`
	TargetLanguages []string `json:"target_languages"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	voices := make([]string, 0, len(synth.Voices)+1)
	voices = append(voices, synth.VoiceNone)
	voices = append(voices, synth.Voices...)

	respondJSON(w, http.StatusOK, catalogResponse{
		Voices:          voices,
		DefaultVoice:    s.cfg.TTSVoice,
		Presets:         pipeline.PresetNames(),
		SourceLanguages: language.SourceNames(),
		TargetLanguages: language.TargetNames(),
	})
}
