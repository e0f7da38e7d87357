package workerpool

import (
	"errors"
	"runtime"
	"sync"
)

var (
	ErrGlobalBufferFull = errors.New("workerpool: global buffer is full")
	ErrRoomBufferFull   = errors.New("workerpool: room buffer is full")
	ErrClosed           = errors.New("workerpool: pool is closed")
)

type Config struct {
	WorkerCount  int // defaults to 3 * NumCPU
	GlobalBuffer int // defaults to 10000
}

// WorkerPool runs tasks of any number of rooms on a fixed set of workers.
type WorkerPool struct {
	config    Config
	taskQueue chan func()
	workers   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(config Config) *WorkerPool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU() * 3
	}
	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 10000
	}

	wp := &WorkerPool{
		config:    config,
		taskQueue: make(chan func(), config.GlobalBuffer),
	}

	wp.workers.Add(config.WorkerCount)
	for i := 0; i < config.WorkerCount; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.workers.Done()
	for run := range wp.taskQueue {
		run()
	}
}

func (wp *WorkerPool) submit(run func(), wait bool) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrClosed
	}
	if !wait && len(wp.taskQueue) == cap(wp.taskQueue) {
		return ErrGlobalBufferFull
	}
	wp.taskQueue <- run
	return nil
}

// Close lets queued tasks finish and stops the workers.
func (wp *WorkerPool) Close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.mu.Unlock()
	wp.workers.Wait()
}

// Room groups the results of related tasks. The room buffer must hold every
// result not yet collected, otherwise workers block on it.
type Room[T any] struct {
	wp         *WorkerPool
	resultChan chan T
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

func NewRoom[T any](wp *WorkerPool, size int) *Room[T] {
	return &Room[T]{
		wp:         wp,
		resultChan: make(chan T, size),
	}
}

// NewTaskWaitForFreeSlot blocks while the global queue is full.
func (ro *Room[T]) NewTaskWaitForFreeSlot(job func() T) error {
	ro.wg.Add(1)
	err := ro.wp.submit(func() {
		defer ro.wg.Done()
		ro.resultChan <- job()
	}, true)
	if err != nil {
		ro.wg.Done()
	}
	return err
}

func (ro *Room[T]) NewTask(job func() T) error {
	if len(ro.resultChan) == cap(ro.resultChan) {
		return ErrRoomBufferFull
	}
	ro.wg.Add(1)
	err := ro.wp.submit(func() {
		defer ro.wg.Done()
		ro.resultChan <- job()
	}, false)
	if err != nil {
		ro.wg.Done()
	}
	return err
}

// Collect waits for all tasks of the room and returns their results in
// completion order. A room is collected once.
func (ro *Room[T]) Collect() []T {
	go ro.waitAndClose()

	results := make([]T, 0, cap(ro.resultChan))
	for result := range ro.resultChan {
		results = append(results, result)
	}
	return results
}

func (ro *Room[T]) waitAndClose() {
	ro.wg.Wait()
	ro.closeOnce.Do(func() { close(ro.resultChan) })
}
