package interviews

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/provider"
	"github.com/aura-interview/backend/internal/provider/generation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, nil).Register(r.Group("/api/v1"))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func startOverHTTP(t *testing.T, r http.Handler) StartResult {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/v1/interviews", gin.H{
		"name":     "Ana",
		"email":    "ana@example.com",
		"position": "Engineer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res StartResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestHandlerInterviewFlow(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	r := newRouter(svc)

	s := startOverHTTP(t, r)
	base := "/api/v1/interviews/" + s.SessionID.String()

	w, env := do(t, r, http.MethodPost, base+"/turns", gin.H{"message": scenarioB, "turnToken": "tok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var turn TurnResult
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.GreaterOrEqual(t, turn.Score, 7.0)

	w, _ = do(t, r, http.MethodGet, "/api/v1/interviews", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, r, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state_transition", env.Code)
	w, _ = do(t, r, http.MethodPost, base+"/resume", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodPost, base+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var end EndResult
	require.NoError(t, json.Unmarshal(env.Data, &end))
	require.NotNil(t, end.FinalScore)
	assert.Equal(t, turn.Score, *end.FinalScore)

	w, env = do(t, r, http.MethodPost, base+"/turns", gin.H{"message": "late answer"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "session_not_active", env.Code)

	w, _ = do(t, r, http.MethodGet, base+"/analytics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, base+"/transcript", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, base+"/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Speaker,Message,Timestamp,Score"))

	w, env = do(t, r, http.MethodGet, "/api/v1/interviews/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st Stats
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, 1, st.Completed)
}

func TestHandlerValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	r := newRouter(svc)

	w, _ := do(t, r, http.MethodPost, "/api/v1/interviews", gin.H{"name": "Ana", "position": "Engineer"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "email is required")

	w, env := do(t, r, http.MethodPost, "/api/v1/interviews", gin.H{
		"name": "Ana", "email": "ana@example.com", "position": "Engineer", "persona": "nobody",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_profile", env.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/interviews/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/interviews/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", env.Code)

	s := startOverHTTP(t, r)
	w, env = do(t, r, http.MethodPost, "/api/v1/interviews/"+s.SessionID.String()+"/turns", gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_response", env.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/interviews/"+s.SessionID.String()+"/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_format", env.Code)
}

func TestHandlerIntervene(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, nil)
	svc.SetPublisher(pub)
	r := newRouter(svc)

	s := startOverHTTP(t, r)
	base := "/api/v1/interviews/" + s.SessionID.String()

	w, env := do(t, r, http.MethodPost, base+"/intervene", gin.H{"message": "Ask about testing strategy."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var turn models.ConversationTurn
	require.NoError(t, json.Unmarshal(env.Data, &turn))
	assert.Equal(t, models.SpeakerAdmin, turn.Speaker)
	assert.Equal(t, "Ask about testing strategy.", turn.Message)
	assert.Contains(t, pub.names(), EventAdminIntervention)

	w, env = do(t, r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var iv models.Interview
	require.NoError(t, json.Unmarshal(env.Data, &iv))
	assert.True(t, iv.AdminIntervention)
	assert.Len(t, iv.Conversation, 2)

	w, env = do(t, r, http.MethodPost, base+"/intervene", gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_response", env.Code)

	w, _ = do(t, r, http.MethodPost, base+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = do(t, r, http.MethodPost, base+"/intervene", gin.H{"message": "too late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "session_not_active", env.Code)
}

func TestHandlerBusyReturnsRetryAfter(t *testing.T) {
	t.Parallel()
	gate := newGate()
	svc, _ := newTestService(t, func(d *Deps) {
		d.Generation = provider.NewAdapter[generation.Request, string](provider.CapabilityGeneration,
			[]provider.Backend[generation.Request, string]{gate}, generation.Demo, provider.Options{})
	})
	r := newRouter(svc)
	s := startOverHTTP(t, r)
	path := "/api/v1/interviews/" + s.SessionID.String() + "/turns"

	done := make(chan struct{})
	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"message":"first answer in flight"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}()
	<-gate.entered

	w, env := do(t, r, http.MethodPost, path, gin.H{"message": "second"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "session_busy", env.Code)

	close(gate.release)
	<-done
}

func TestHandlerAudioTurn(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	r := newRouter(svc)
	s := startOverHTTP(t, r)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "answer.webm")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake webm bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("turnToken", "a-1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interviews/"+s.SessionID.String()+"/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var res AudioTurnResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.NotEmpty(t, res.Transcript)
	assert.NotEmpty(t, res.ReplyText)

	w, _ = do(t, r, http.MethodPost, "/api/v1/interviews/"+s.SessionID.String()+"/audio", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerPersonas(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, nil)
	r := newRouter(svc)

	w, env := do(t, r, http.MethodGet, "/api/v1/personas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "john-technical-lead")
}
