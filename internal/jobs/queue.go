package jobs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ErrDequeueTimeout is returned when no job becomes available within the
// caller's wait window.
var ErrDequeueTimeout = errors.New("dequeue timed out")

// queueCapacity bounds the in-memory queue. Planning caps runs at a few
// hundred jobs; retries re-enter the same window.
const queueCapacity = 4096

// Queue is an in-memory FIFO of jobs mirrored to a line-delimited file on
// disk after every mutation, so a crashed run can be replayed. Failure to
// persist the mirror is a hard error: the queue must not lose jobs silently.
type Queue struct {
	path    string
	items   chan *domain.Job
	pending []*domain.Job
	mu      sync.Mutex
}

// OpenQueue opens (or creates) the queue backed by the given mirror file.
// An existing mirror is replayed into memory.
func OpenQueue(path string) (*Queue, error) {
	q := &Queue{
		path:  path,
		items: make(chan *domain.Job, queueCapacity),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}

	if err := q.replay(); err != nil {
		return nil, err
	}
	return q, nil
}

// replay loads any jobs left in the mirror file back into memory.
func (q *Queue) replay() error {
	file, err := os.Open(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open queue mirror: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var job domain.Job
		if unmarshalErr := json.Unmarshal(line, &job); unmarshalErr != nil {
			return fmt.Errorf("decode queued job: %w", unmarshalErr)
		}
		q.pending = append(q.pending, &job)
		q.items <- &job
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return fmt.Errorf("read queue mirror: %w", scanErr)
	}
	return nil
}

// persist rewrites the entire mirror atomically. Callers must hold the
// mutex.
func (q *Queue) persist() error {
	tmp := q.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create queue mirror: %w", err)
	}

	writer := bufio.NewWriter(file)
	for _, job := range q.pending {
		data, marshalErr := json.Marshal(job)
		if marshalErr != nil {
			file.Close()
			return fmt.Errorf("encode queued job: %w", marshalErr)
		}
		if _, writeErr := writer.Write(append(data, '\n')); writeErr != nil {
			file.Close()
			return fmt.Errorf("write queue mirror: %w", writeErr)
		}
	}
	if flushErr := writer.Flush(); flushErr != nil {
		file.Close()
		return fmt.Errorf("flush queue mirror: %w", flushErr)
	}
	if closeErr := file.Close(); closeErr != nil {
		return fmt.Errorf("close queue mirror: %w", closeErr)
	}
	if renameErr := os.Rename(tmp, q.path); renameErr != nil {
		return fmt.Errorf("replace queue mirror: %w", renameErr)
	}
	return nil
}

// Enqueue adds a job to the tail of the queue and persists the mirror.
func (q *Queue) Enqueue(job *domain.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.items <- job:
	default:
		return fmt.Errorf("queue is full (capacity %d)", queueCapacity)
	}
	q.pending = append(q.pending, job)
	return q.persist()
}

// Dequeue removes the next job in FIFO order, waiting up to wait for one to
// become available. Returns ErrDequeueTimeout when the window elapses.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (*domain.Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case job := <-q.items:
		q.mu.Lock()
		defer q.mu.Unlock()
		q.removePending(job)
		if err := q.persist(); err != nil {
			return nil, err
		}
		return job, nil
	case <-timer.C:
		return nil, ErrDequeueTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// removePending drops the first pending entry matching the job. Callers
// must hold the mutex.
func (q *Queue) removePending(job *domain.Job) {
	for i, pending := range q.pending {
		if pending.JobID == job.JobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// Clear removes all jobs and truncates the mirror file.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case <-q.items:
		default:
			q.pending = q.pending[:0]
			return q.persist()
		}
	}
}

// Empty reports whether no jobs remain queued.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// TaskDone signals completion of a dequeued job and persists the mirror so
// the on-disk state reflects in-flight work finishing.
func (q *Queue) TaskDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.persist()
}
