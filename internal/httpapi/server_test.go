package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/traduttore/internal/audio"
	"github.com/antoniostano/traduttore/internal/config"
	"github.com/antoniostano/traduttore/internal/history"
	"github.com/antoniostano/traduttore/internal/pipeline"
	"github.com/antoniostano/traduttore/internal/protocol"
)

func testConfig() config.Config {
	return config.Config{
		TranslateModel: "test-model",
		TTSVoice:       "none",
		BlockDuration:  50 * time.Millisecond,
		MinSilence:     200 * time.Millisecond,
		MinSpeech:      300 * time.Millisecond,
		MaxSpeech:      time.Second,
		Overlap:        100 * time.Millisecond,
		MaxBuffer:      5 * time.Second,
		PoolSize:       2,
	}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	engine := pipeline.NewEngine(&pipeline.MockRecognizer{}, &pipeline.MockTranslator{}, &pipeline.MockSynthesizer{})
	srv := New(testConfig(), Deps{
		Engine:  engine,
		History: history.NewInMemoryStore(),
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		if sess := engine.Active(); sess != nil {
			sess.Stop()
		}
		ts.Close()
	})
	return srv, ts
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return res
}

func createSession(t *testing.T, baseURL string) string {
	t.Helper()
	res := postJSON(t, baseURL+"/v1/translate/session", map[string]string{
		"target_language": "Spanish",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var created sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatalf("missing session_id: %+v", created)
	}
	return created.SessionID
}

func TestCreateAndEndSession(t *testing.T) {
	_, ts := newTestServer(t)

	id := createSession(t, ts.URL)

	dup := postJSON(t, ts.URL+"/v1/translate/session", map[string]string{"target_language": "French"})
	dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Fatalf("second create status = %d, want %d", dup.StatusCode, http.StatusConflict)
	}

	end := postJSON(t, ts.URL+"/v1/translate/session/"+id+"/end", nil)
	end.Body.Close()
	if end.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want %d", end.StatusCode, http.StatusOK)
	}

	again := postJSON(t, ts.URL+"/v1/translate/session/"+id+"/end", nil)
	again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("repeat end status = %d, want %d", again.StatusCode, http.StatusNotFound)
	}
}

func TestCreateSessionRequiresTarget(t *testing.T) {
	_, ts := newTestServer(t)

	res := postJSON(t, ts.URL+"/v1/translate/session", map[string]string{})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestIngestAudio(t *testing.T) {
	_, ts := newTestServer(t)
	id := createSession(t, ts.URL)

	pcm := audio.Float32ToPCM16LE(make([]float32, 800))
	res := postJSON(t, ts.URL+"/v1/translate/session/"+id+"/audio", map[string]any{
		"pcm16_base64": base64.StdEncoding.EncodeToString(pcm),
		"sample_rate":  16000,
	})
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest status = %d, want %d", res.StatusCode, http.StatusAccepted)
	}

	miss := postJSON(t, ts.URL+"/v1/translate/session/nope/audio", map[string]any{
		"pcm16_base64": base64.StdEncoding.EncodeToString(pcm),
		"sample_rate":  16000,
	})
	miss.Body.Close()
	if miss.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown session status = %d, want %d", miss.StatusCode, http.StatusNotFound)
	}

	bad := postJSON(t, ts.URL+"/v1/translate/session/"+id+"/audio", map[string]any{
		"pcm16_base64": "not base64!!!",
		"sample_rate":  16000,
	})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad chunk status = %d, want %d", bad.StatusCode, http.StatusBadRequest)
	}
}

func TestDisplayEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/translate/display")
	if err != nil {
		t.Fatalf("GET display error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("display status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var state pipeline.DisplayState
	if err := json.NewDecoder(res.Body).Decode(&state); err != nil {
		t.Fatalf("decode display: %v", err)
	}
}

func TestUpdateParams(t *testing.T) {
	_, ts := newTestServer(t)

	patchReq := func(payload any) *http.Response {
		body, _ := json.Marshal(payload)
		req, _ := http.NewRequest(http.MethodPatch, ts.URL+"/v1/translate/params", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("PATCH params error = %v", err)
		}
		return res
	}

	idle := patchReq(map[string]string{"preset": "Balanced"})
	idle.Body.Close()
	if idle.StatusCode != http.StatusNotFound {
		t.Fatalf("idle patch status = %d, want %d", idle.StatusCode, http.StatusNotFound)
	}

	createSession(t, ts.URL)

	res := patchReq(map[string]string{"preset": "Balanced"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var view paramsView
	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if view.MinSilenceMS != 650 {
		t.Fatalf("MinSilenceMS = %d, want 650", view.MinSilenceMS)
	}

	bad := patchReq(map[string]string{"preset": "Warp Speed"})
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown preset status = %d, want %d", bad.StatusCode, http.StatusBadRequest)
	}

	zero := 0
	invalid := patchReq(paramsPatch{PoolSize: &zero})
	invalid.Body.Close()
	if invalid.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid params status = %d, want %d", invalid.StatusCode, http.StatusBadRequest)
	}
}

func TestListenerRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	rootRes, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	defer rootRes.Body.Close()
	if rootRes.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("GET / status = %d, want %d", rootRes.StatusCode, http.StatusTemporaryRedirect)
	}
	if got := rootRes.Header.Get("Location"); got != "/listener/" {
		t.Fatalf("GET / location = %q, want %q", got, "/listener/")
	}

	pageRes, err := http.Get(ts.URL + "/listener/")
	if err != nil {
		t.Fatalf("GET /listener/ error = %v", err)
	}
	defer pageRes.Body.Close()
	if pageRes.StatusCode != http.StatusOK {
		t.Fatalf("GET /listener/ status = %d, want %d", pageRes.StatusCode, http.StatusOK)
	}
	var body bytes.Buffer
	if _, err := body.ReadFrom(pageRes.Body); err != nil {
		t.Fatalf("reading /listener/ body failed: %v", err)
	}
	if !strings.Contains(body.String(), "Traduttore") {
		t.Fatalf("GET /listener/ body missing expected content")
	}
}

func TestCatalog(t *testing.T) {
	_, ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/v1/voices")
	if err != nil {
		t.Fatalf("GET /v1/voices error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var cat catalogResponse
	if err := json.NewDecoder(res.Body).Decode(&cat); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(cat.Voices) == 0 || cat.Voices[0] != "none" {
		t.Fatalf("voices[0] = %v, want none", cat.Voices)
	}
	found := false
	for _, p := range cat.Presets {
		if p == "Balanced" {
			found = true
		}
	}
	if !found {
		t.Fatalf("presets missing Balanced: %v", cat.Presets)
	}
	if len(cat.SourceLanguages) == 0 || cat.SourceLanguages[0] != pipeline.SourceAuto {
		t.Fatalf("source languages should start with %q", pipeline.SourceAuto)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		err := srv.store.Save(ctx, history.Record{
			SessionID:   "sess",
			Seq:         uint64(i),
			Transcript:  "hello",
			Translation: "hola",
		})
		if err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}

	res, err := http.Get(ts.URL + "/v1/translate/history?limit=2")
	if err != nil {
		t.Fatalf("GET history error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var payload struct {
		Records []history.Record `json:"records"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(payload.Records))
	}
}

func TestWebsocketReceivesDisplayUpdates(t *testing.T) {
	srv, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/translate/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the subscriber.
	time.Sleep(50 * time.Millisecond)
	srv.broadcastDisplay(pipeline.DisplayState{
		Seq:         3,
		Transcript:  "hello everyone",
		Translation: "hola a todos",
		UpdatedAt:   time.Now(),
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update protocol.DisplayUpdate
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.Type != protocol.TypeDisplayUpdate || update.Seq != 3 {
		t.Fatalf("unexpected update: %+v", update)
	}
	if update.Translation != "hola a todos" {
		t.Fatalf("translation = %q", update.Translation)
	}
}
