package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/interviews"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/pkg/queue"
)

type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
}

func (f *fakeJobs) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return nil, nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	return job, nil
}

func (f *fakeJobs) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeJobs) retries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

func seed(t *testing.T) (*interviews.MemoryStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := interviews.NewMemoryStore()
	id, turnID := uuid.New(), uuid.New()
	require.NoError(t, store.Create(context.Background(), &models.Interview{
		ID:        id,
		Candidate: models.CandidateProfile{Name: "Ana", Position: "Engineer", Experience: models.ExperienceMid},
		Persona:   "john-technical-lead",
		Status:    models.StatusActive,
		StartTime: time.Now(),
		Conversation: []models.ConversationTurn{
			{ID: turnID, Speaker: models.SpeakerAI, Message: "Welcome.", Timestamp: time.Now(), VideoURL: "https://vendor/clip.mp4"},
		},
	}))
	return store, id, turnID
}

func mirrorJob(t *testing.T, id, turnID uuid.UUID, src string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ArtifactMirrorPayload{InterviewID: id, TurnID: turnID, SourceURL: src})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeArtifactMirror, Payload: body}
}

func videoServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProcessMirrorsVideo(t *testing.T) {
	store, id, turnID := seed(t)
	dir := t.TempDir()
	local, err := artifacts.NewLocalStore(dir, "http://localhost:8080/artifacts")
	require.NoError(t, err)
	srv := videoServer(t, http.StatusOK)

	p := NewMirrorProcessor(store, local, &fakeJobs{}, time.Millisecond, nil)
	require.NoError(t, p.Process(context.Background(), mirrorJob(t, id, turnID, srv.URL+"/clip.mp4")))

	iv, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	mirrored := iv.Conversation[0].MirroredVideoURL
	require.True(t, strings.HasPrefix(mirrored, "http://localhost:8080/artifacts/video/"), mirrored)
	assert.True(t, strings.HasSuffix(mirrored, ".mp4"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(mirrored, "http://localhost:8080/artifacts/")))
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))

	// A second delivery of the same job is a no-op.
	require.NoError(t, p.Process(context.Background(), mirrorJob(t, id, turnID, srv.URL+"/clip.mp4")))
	iv, err = store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, mirrored, iv.Conversation[0].MirroredVideoURL)
}

func TestProcessErrors(t *testing.T) {
	store, id, turnID := seed(t)
	local, err := artifacts.NewLocalStore(t.TempDir(), "/artifacts")
	require.NoError(t, err)
	p := NewMirrorProcessor(store, local, &fakeJobs{}, time.Millisecond, nil)
	ctx := context.Background()

	gone := videoServer(t, http.StatusGone)
	assert.ErrorContains(t, p.Process(ctx, mirrorJob(t, id, turnID, gone.URL)), "download status: 410")

	ok := videoServer(t, http.StatusOK)
	assert.ErrorContains(t, p.Process(ctx, mirrorJob(t, id, uuid.New(), ok.URL)), "turn not found")
	assert.ErrorIs(t, p.Process(ctx, mirrorJob(t, uuid.New(), turnID, ok.URL)), interviews.ErrRecordNotFound)
	assert.ErrorContains(t, p.Process(ctx, &queue.Job{Type: "other"}), "unknown job type")
}

func TestRunRetriesFailedJobs(t *testing.T) {
	store, id, turnID := seed(t)
	local, err := artifacts.NewLocalStore(t.TempDir(), "/artifacts")
	require.NoError(t, err)
	gone := videoServer(t, http.StatusNotFound)
	jobs := &fakeJobs{pending: []*queue.Job{mirrorJob(t, id, turnID, gone.URL)}}

	p := NewMirrorProcessor(store, local, jobs, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool { return jobs.retries() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, jobs.retried[0].Attempt)
}
