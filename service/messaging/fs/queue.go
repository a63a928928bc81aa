// Package fs provides a filesystem-backed messaging.Queue. The dispatch
// engine itself is purely in-memory; this vendor exists for the observation
// side, where a durable journal of activity events can outlive the process.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"

	"github.com/northpole/dispatch/internal/idgen"
	"github.com/northpole/dispatch/service/messaging"
)

// MessageState represents the lifecycle state of a journaled message
type MessageState string

const (
	// MessageStatePending indicates a message is waiting to be consumed
	MessageStatePending MessageState = "pending"

	// MessageStateProcessing indicates a message is being consumed
	MessageStateProcessing MessageState = "processing"

	// MessageStateArchived indicates a message was successfully consumed
	MessageStateArchived MessageState = "archived"

	// MessageStateDead indicates a message exhausted its redeliveries
	MessageStateDead MessageState = "dead"
)

// Message implements messaging.Message for the filesystem queue
type Message[T any] struct {
	ID        string       `json:"id"`
	Data      T            `json:"data"`
	State     MessageState `json:"state"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Retries   int          `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack archives the message
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = MessageStateArchived
	m.UpdatedAt = time.Now()
	return m.queue.archive(context.Background(), m)
}

// Nack requeues the message for redelivery, or moves it to the dead
// directory once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()
	return m.queue.requeueOrBury(context.Background(), m)
}

// Config holds configuration for the filesystem queue
type Config struct {
	// BaseURL is the afs location holding the queue directories; any scheme
	// supported by afs works (file, mem, s3, ...).
	BaseURL string

	// MaxRetries bounds redeliveries before a message is declared dead
	MaxRetries int
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:    "/tmp/northpole/journal",
		MaxRetries: 3,
	}
}

// Queue implements a filesystem-based messaging.Queue
type Queue[T any] struct {
	fs         afs.Service
	config     Config
	pendingDir string
	activeDir  string
	archiveDir string
	deadDir    string
	mu         sync.Mutex
}

// NewQueue creates a new filesystem-based queue rooted at config.BaseURL
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	q := &Queue[T]{
		fs:         fs,
		config:     config,
		pendingDir: path.Join(config.BaseURL, "pending"),
		activeDir:  path.Join(config.BaseURL, "processing"),
		archiveDir: path.Join(config.BaseURL, "archived"),
		deadDir:    path.Join(config.BaseURL, "dead"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.activeDir, q.archiveDir, q.deadDir} {
		exists, _ := fs.Exists(ctx, dir)
		if exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a new message into the pending directory
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		State:     MessageStatePending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		queue:     q,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.upload(ctx, path.Join(q.pendingDir, q.filename(message.ID)), data)
}

// Consume claims the oldest pending message by moving it to the processing
// directory. It returns nil without error when nothing is pending.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var pending []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			pending = append(pending, obj)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}
	obj := pending[0]

	message, err := q.read(ctx, obj.URL())
	if err != nil {
		// Unreadable payload goes straight to the dead directory.
		_ = q.fs.Move(ctx, obj.URL(), path.Join(q.deadDir, fmt.Sprintf("invalid-%s", obj.Name())))
		return nil, err
	}
	message.State = MessageStateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q

	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claimed message: %w", err)
	}
	// Upload to processing first, then delete from pending, so a crash in
	// between duplicates rather than loses the message.
	if err := q.upload(ctx, path.Join(q.activeDir, obj.Name()), data); err != nil {
		return nil, fmt.Errorf("failed to move message to processing: %w", err)
	}
	if err := q.fs.Delete(ctx, obj.URL()); err != nil {
		return nil, fmt.Errorf("failed to delete pending message: %w", err)
	}
	return message, nil
}

// archive moves an acked message into the archive directory
func (q *Queue[T]) archive(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal archived message: %w", err)
	}
	name := q.filename(m.ID)
	if err := q.upload(ctx, path.Join(q.archiveDir, name), data); err != nil {
		return fmt.Errorf("failed to archive message: %w", err)
	}
	return q.removeActive(ctx, name)
}

// requeueOrBury returns a nacked message to pending, or to dead once the
// retry budget is spent.
func (q *Queue[T]) requeueOrBury(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	name := q.filename(m.ID)
	destDir := q.pendingDir
	if m.Retries > q.config.MaxRetries {
		destDir = q.deadDir
		m.State = MessageStateDead
	} else {
		m.State = MessageStatePending
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal nacked message: %w", err)
	}
	if err := q.upload(ctx, path.Join(destDir, name), data); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return q.removeActive(ctx, name)
}

func (q *Queue[T]) removeActive(ctx context.Context, name string) error {
	activePath := path.Join(q.activeDir, name)
	if exists, _ := q.fs.Exists(ctx, activePath); exists {
		if err := q.fs.Delete(ctx, activePath); err != nil {
			return fmt.Errorf("failed to delete processing message: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) filename(id string) string {
	return fmt.Sprintf("%s.json", id)
}

func (q *Queue[T]) upload(ctx context.Context, path string, data []byte) error {
	return q.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) read(ctx context.Context, url string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", url, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", url, err)
	}
	return &message, nil
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
