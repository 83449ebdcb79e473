package pipeline

import (
	"errors"
	"testing"
)

func TestReconcilerNeverRegresses(t *testing.T) {
	r := NewReconciler(nil)

	if !r.Apply(TranslationResult{Seq: 3, Transcript: "three", Translation: "tres"}) {
		t.Fatal("seq 3 rejected on empty display")
	}
	if r.Apply(TranslationResult{Seq: 2, Transcript: "two", Translation: "dos"}) {
		t.Fatal("stale seq 2 accepted")
	}
	if r.Apply(TranslationResult{Seq: 1, Transcript: "one", Translation: "uno"}) {
		t.Fatal("stale seq 1 accepted")
	}

	state := r.Snapshot()
	if state.Seq != 3 || state.Transcript != "three" || state.Translation != "tres" {
		t.Fatalf("display = %+v, want seq 3 three/tres", state)
	}
	if r.StaleDropped() != 2 {
		t.Fatalf("StaleDropped = %d, want 2", r.StaleDropped())
	}
}

func TestReconcilerStickyTranslationOnFailure(t *testing.T) {
	r := NewReconciler(nil)
	r.Apply(TranslationResult{Seq: 1, Transcript: "hello there friend", Translation: "hola amigo"})
	r.Apply(TranslationResult{Seq: 2, Transcript: "next line", Err: errors.New("backend down")})

	state := r.Snapshot()
	if state.Transcript != "next line" {
		t.Fatalf("transcript = %q, want updated despite failure", state.Transcript)
	}
	if state.Translation != "hola amigo" {
		t.Fatalf("translation = %q, want previous kept", state.Translation)
	}
}

func TestReconcilerNotifiesOnAccept(t *testing.T) {
	var updates []DisplayState
	r := NewReconciler(func(s DisplayState) { updates = append(updates, s) })

	r.Apply(TranslationResult{Seq: 1, Transcript: "a", Translation: "b"})
	r.Apply(TranslationResult{Seq: 1, Transcript: "dup", Translation: "dup"}) // equal seq is stale

	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	if updates[0].Seq != 1 || updates[0].Transcript != "a" {
		t.Fatalf("update = %+v", updates[0])
	}
}

func TestReconcilerAttachAudio(t *testing.T) {
	r := NewReconciler(nil)
	r.Apply(TranslationResult{Seq: 1, Transcript: "line", Translation: "linea"})

	if !r.AttachAudio(1, "/audio/a.mp3") {
		t.Fatal("audio for current seq rejected")
	}
	if got := r.Snapshot().AudioURL; got != "/audio/a.mp3" {
		t.Fatalf("AudioURL = %q", got)
	}

	r.Apply(TranslationResult{Seq: 2, Transcript: "newer", Translation: "nueva"})
	if r.AttachAudio(1, "/audio/late.mp3") {
		t.Fatal("audio for a superseded line accepted")
	}
	if got := r.Snapshot().AudioURL; got != "" {
		t.Fatalf("AudioURL after newer line = %q, want cleared", got)
	}
}

func TestReconcilerDrain(t *testing.T) {
	r := NewReconciler(nil)
	ch := make(chan TranslationResult, 4)
	ch <- TranslationResult{Seq: 2, Transcript: "b", Translation: "B"}
	ch <- TranslationResult{Seq: 1, Transcript: "a", Translation: "A"}
	ch <- TranslationResult{Seq: 4, Transcript: "d", Translation: "D"}

	if got := r.Drain(ch); got != 2 {
		t.Fatalf("Drain accepted %d, want 2", got)
	}
	if state := r.Snapshot(); state.Seq != 4 || state.Transcript != "d" {
		t.Fatalf("display = %+v, want seq 4", state)
	}
}
