package security

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/SwagatoSarowar/Natours/internal/core/port"
)

// ErrPoolClosed is returned once Close has been called.
var ErrPoolClosed = errors.New("hashing pool: closed")

type hashJob struct {
	run  func()
	done chan struct{}
}

// HashingPool runs password hashing on a fixed set of worker goroutines so
// that expensive Argon2 calls cannot saturate every CPU at once.
type HashingPool struct {
	hasher port.PasswordHasher
	jobs   chan hashJob
	quit   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewHashingPool starts workers goroutines around hasher. A non-positive
// workers value uses runtime.NumCPU().
func NewHashingPool(hasher port.PasswordHasher, workers int) *HashingPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	p := &HashingPool{
		hasher: hasher,
		jobs:   make(chan hashJob),
		quit:   make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *HashingPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case job := <-p.jobs:
			job.run()
			close(job.done)
		}
	}
}

// Hash queues a hash computation and waits for the result or ctx cancellation.
func (p *HashingPool) Hash(ctx context.Context, password string) (string, error) {
	var (
		encoded string
		err     error
	)
	if submitErr := p.submit(ctx, func() {
		encoded, err = p.hasher.Hash(ctx, password)
	}); submitErr != nil {
		return "", submitErr
	}
	return encoded, err
}

// Verify queues a verification and waits for the result or ctx cancellation.
func (p *HashingPool) Verify(ctx context.Context, password, encoded string) (bool, error) {
	var (
		ok  bool
		err error
	)
	if submitErr := p.submit(ctx, func() {
		ok, err = p.hasher.Verify(ctx, password, encoded)
	}); submitErr != nil {
		return false, submitErr
	}
	return ok, err
}

func (p *HashingPool) submit(ctx context.Context, run func()) error {
	job := hashJob{run: run, done: make(chan struct{})}

	select {
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
	}

	// run writes into the caller's variables; wait even if ctx is cancelled.
	<-job.done
	return nil
}

// Close stops the workers after in-flight jobs finish.
func (p *HashingPool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}

var _ port.PasswordHasher = (*HashingPool)(nil)
var _ port.PasswordHasher = (*Argon2Hasher)(nil)
