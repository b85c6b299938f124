package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/srt-editor/pkg/log"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
)

// Executor runs one job. ctx is canceled when the job is canceled or the
// queue stops; report may be called to publish progress.
type Executor func(ctx context.Context, job *TranslationJob, report func(done, total int)) error

type Queue struct {
	workerCount int
	maxJobs     int

	mu         sync.RWMutex
	jobs       map[string]*TranslationJob
	dedupe     map[string]string
	cancels    map[string]context.CancelFunc
	canceled   map[string]bool
	idCounter  uint64
	started    bool
	pendingIDs chan string

	baseCtx    context.Context
	stopCancel context.CancelFunc
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewQueue(workerCount int) *Queue {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workerCount: workerCount,
		maxJobs:     1000,
		jobs:        make(map[string]*TranslationJob),
		dedupe:      make(map[string]string),
		cancels:     make(map[string]context.CancelFunc),
		canceled:    make(map[string]bool),
		pendingIDs:  make(chan string, 1024),
		baseCtx:     ctx,
		stopCancel:  cancel,
	}
}

// Enqueue adds a pending job. When a pending or running job already holds
// req.DedupeKey, that job is returned and created is false.
func (q *Queue) Enqueue(req EnqueueRequest) (*TranslationJob, bool) {
	now := time.Now()

	q.mu.Lock()
	if id, ok := q.dedupe[req.DedupeKey]; ok {
		if existing, exists := q.jobs[id]; exists {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.dedupe, req.DedupeKey)
	}

	id := fmt.Sprintf("job-%d", atomic.AddUint64(&q.idCounter, 1))
	job := &TranslationJob{
		ID:        id,
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	q.jobs[id] = job
	if req.DedupeKey != "" {
		q.dedupe[req.DedupeKey] = id
	}
	started := q.started
	snapshot := cloneJob(job)
	q.mu.Unlock()

	log.Info("Enqueued %s (source=%s, session=%s)", id, req.Source, req.Payload.SessionID)
	if started {
		q.enqueuePendingID(id)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	job, ok := q.jobs[id]
	q.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns all jobs, newest first.
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID > ret[j].ID
		}
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Cancel stops a pending or running job.
func (q *Queue) Cancel(id string) (*TranslationJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	switch job.Status {
	case StatusPending:
		job.Status = StatusCanceled
		job.UpdatedAt = time.Now()
		q.releaseDedupeLocked(job)
	case StatusRunning:
		q.canceled[id] = true
		if cancel, ok := q.cancels[id]; ok {
			cancel()
		}
	default:
		return cloneJob(job), ErrJobFinished
	}
	log.Info("Cancel requested for %s", id)
	return cloneJob(job), nil
}

func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true

	pending := make([]*TranslationJob, 0)
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, job)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	ids := make([]string, 0, len(pending))
	for _, job := range pending {
		ids = append(ids, job.ID)
	}
	q.mu.Unlock()

	for _, id := range ids {
		q.enqueuePendingID(id)
	}

	for range q.workerCount {
		q.wg.Add(1)
		go q.worker(exec)
	}
}

// Stop cancels running jobs and waits for the workers to exit.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		q.stopCancel()
		q.wg.Wait()
	})
}

func (q *Queue) worker(exec Executor) {
	defer q.wg.Done()

	for {
		select {
		case <-q.baseCtx.Done():
			return
		case id := <-q.pendingIDs:
			ctx, cancel := context.WithCancel(q.baseCtx)
			job, ok := q.markRunning(id, cancel)
			if !ok {
				cancel()
				continue
			}

			err := exec(ctx, job, func(done, total int) {
				q.setProgress(id, done, total)
			})
			cancel()
			q.finish(id, err)
		}
	}
}

func (q *Queue) enqueuePendingID(id string) {
	select {
	case q.pendingIDs <- id:
	default:
		go func() {
			select {
			case q.pendingIDs <- id:
			case <-q.baseCtx.Done():
			}
		}()
	}
}

func (q *Queue) markRunning(id string, cancel context.CancelFunc) (*TranslationJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || job.Status != StatusPending {
		return nil, false
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	q.cancels[id] = cancel
	return cloneJob(job), true
}

func (q *Queue) setProgress(id string, done, total int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok || job.Status != StatusRunning {
		return
	}
	job.Progress = Progress{Done: done, Total: total}
	job.UpdatedAt = time.Now()
}

func (q *Queue) finish(id string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	canceled := q.canceled[id]
	delete(q.cancels, id)
	delete(q.canceled, id)

	switch {
	case canceled:
		job.Status = StatusCanceled
		job.Error = ""
	case err != nil:
		job.Status = StatusFailed
		job.Error = err.Error()
		log.Error("Job %s failed: %v", id, err)
	default:
		job.Status = StatusSuccess
		job.Error = ""
	}
	job.UpdatedAt = time.Now()
	q.releaseDedupeLocked(job)
	q.pruneTerminalJobsLocked()
}

func (q *Queue) releaseDedupeLocked(job *TranslationJob) {
	if job == nil || job.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[job.DedupeKey]; ok && id == job.ID {
		delete(q.dedupe, job.DedupeKey)
	}
}

func (q *Queue) pruneTerminalJobsLocked() []string {
	if q.maxJobs <= 0 || len(q.jobs) <= q.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(q.jobs))
	for id, job := range q.jobs {
		if job == nil || !job.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := min(len(q.jobs)-q.maxJobs, len(terminal))
	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		id := terminal[i].id
		q.releaseDedupeLocked(q.jobs[id])
		delete(q.jobs, id)
		pruned = append(pruned, id)
	}
	return pruned
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
