package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tefi/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one newly created property.
type Handler func(*models.Property) error

// PropertyQueue fans newly created properties out to subscribers on a
// single background goroutine.
type PropertyQueue struct {
	items    chan *models.Property
	maxSize  int
	closed   bool
	started  bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []Handler
}

func NewPropertyQueue(bufferSize int, logger *logrus.Logger) *PropertyQueue {
	return &PropertyQueue{
		items:    make(chan *models.Property, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push enqueues a property without blocking.
func (q *PropertyQueue) Push(property *models.Property) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- property:
		q.logger.WithField("code", property.UniqueCode).Debug("Pushed property to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *PropertyQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing. Calling it more than once has no effect.
func (q *PropertyQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.closed {
		return
	}
	q.started = true

	q.wg.Add(1)
	go q.process()
}

func (q *PropertyQueue) process() {
	defer q.wg.Done()
	for property := range q.items {
		q.dispatch(property)
	}
}

func (q *PropertyQueue) dispatch(property *models.Property) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(property); err != nil {
			q.logger.WithError(err).WithField("code", property.UniqueCode).Error("Handler failed to process property")
		}
	}
}

// Close stops accepting new items and waits until queued items are handled.
func (q *PropertyQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *PropertyQueue) Len() int {
	return len(q.items)
}

func (q *PropertyQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
