package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/queue"
	"github.com/autoparts-market/backend/pkg/storage"
)

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeSource) Dequeue(context.Context) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		return nil, nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, nil
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeSource) retriedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

type brokenImages struct{ storage.ImageStore }

func (brokenImages) Remove(context.Context, string) error {
	return apperr.Cleanup("remove image", errors.New("read-only file system"))
}

func cleanupJob(t *testing.T, image string) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.ImageCleanupPayload{Image: image})
	require.NoError(t, err)
	return &queue.Job{ID: "job-" + image, Type: queue.JobTypeImageCleanup, Payload: body}
}

func TestProcessRemovesImage(t *testing.T) {
	local := storage.NewLocal(t.TempDir(), "/images", nil)
	require.NoError(t, os.MkdirAll(local.Dir(), 0o755))
	file := filepath.Join(local.Dir(), "adv_1.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	p := NewImageCleanupProcessor(local, &fakeSource{}, nil)
	require.NoError(t, p.Process(context.Background(), cleanupJob(t, "adv_1.png")))
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, p.Process(context.Background(), cleanupJob(t, "adv_1.png")), "already removed")
	require.NoError(t, p.Process(context.Background(), cleanupJob(t, "https://cdn.example.com/a.png")))
}

func TestProcessRejectsUnknownType(t *testing.T) {
	p := NewImageCleanupProcessor(storage.NewLocal(t.TempDir(), "/images", nil), &fakeSource{}, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "email"})
	assert.EqualError(t, err, `unexpected job type "email"`)
}

func TestRunRetriesFailedJobs(t *testing.T) {
	src := &fakeSource{}
	src.jobs = []*queue.Job{cleanupJob(t, "adv_2.png")}
	p := NewImageCleanupProcessor(brokenImages{}, src, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return src.retriedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, src.retried[0].Attempt)
}
