package pipeline

import (
	"sync"
	"time"
)

// DisplayState is what listeners currently see. Translation is sticky: a
// failed translation updates the transcript but keeps the last good
// translation on screen.
type DisplayState struct {
	Seq         uint64    `json:"sequence"`
	Transcript  string    `json:"transcription"`
	Translation string    `json:"translation"`
	AudioURL    string    `json:"audio_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reconciler restores utterance order over out-of-order translation results.
// A result is applied only when its sequence number is strictly newer than the
// last accepted one, so a slow translation of an old utterance can never
// overwrite a newer line.
type Reconciler struct {
	mu       sync.Mutex
	state    DisplayState
	onUpdate func(DisplayState)

	staleDropped uint64
}

func NewReconciler(onUpdate func(DisplayState)) *Reconciler {
	return &Reconciler{onUpdate: onUpdate}
}

// Apply offers a result to the display. It reports whether the result was
// accepted.
func (r *Reconciler) Apply(res TranslationResult) bool {
	r.mu.Lock()
	if res.Seq <= r.state.Seq {
		r.staleDropped++
		r.mu.Unlock()
		return false
	}
	r.state.Seq = res.Seq
	r.state.Transcript = res.Transcript
	if res.Translation != "" {
		r.state.Translation = res.Translation
	}
	r.state.UpdatedAt = time.Now()
	r.state.AudioURL = ""
	snapshot := r.state
	notify := r.onUpdate
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return true
}

// AttachAudio records the synthesized audio URL for a sequence. The URL is
// dropped when the display has already moved past that line.
func (r *Reconciler) AttachAudio(seq uint64, url string) bool {
	r.mu.Lock()
	if seq != r.state.Seq || url == "" {
		r.mu.Unlock()
		return false
	}
	r.state.AudioURL = url
	r.state.UpdatedAt = time.Now()
	snapshot := r.state
	notify := r.onUpdate
	r.mu.Unlock()

	if notify != nil {
		notify(snapshot)
	}
	return true
}

// Drain applies every result currently buffered on the channel without
// blocking. It returns how many were accepted.
func (r *Reconciler) Drain(results <-chan TranslationResult) int {
	accepted := 0
	for {
		select {
		case res, ok := <-results:
			if !ok {
				return accepted
			}
			if r.Apply(res) {
				accepted++
			}
		default:
			return accepted
		}
	}
}

// Snapshot returns a copy of the current display.
func (r *Reconciler) Snapshot() DisplayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StaleDropped reports how many results arrived too late to display.
func (r *Reconciler) StaleDropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staleDropped
}
