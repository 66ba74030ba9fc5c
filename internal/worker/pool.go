package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"arcos-chat/internal/models"
)

const (
	maxAttempts  = 3
	writeTimeout = 5 * time.Second
)

// Sink persists one dispatch record.
type Sink interface {
	Insert(ctx context.Context, rec models.DispatchRecord) error
}

// Pool writes dispatch records in the background so the dispatcher never
// waits on the database. Records are dropped, with a warning, when the
// queue is full.
type Pool struct {
	sink        Sink
	queue       chan models.DispatchRecord
	workerCount int
	backoff     time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewPool(sink Sink, workerCount, queueSize int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		sink:        sink,
		queue:       make(chan models.DispatchRecord, queueSize),
		workerCount: workerCount,
		backoff:     200 * time.Millisecond,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	log.Info().Int("workers", p.workerCount).Msg("started dispatch log workers")
}

// Stop lets the workers drain what is already queued, then returns.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
}

// Record enqueues rec without blocking.
func (p *Pool) Record(_ context.Context, rec models.DispatchRecord) {
	select {
	case <-p.stopChan:
		return
	default:
	}

	select {
	case p.queue <- rec:
	default:
		log.Warn().Str("request_id", rec.RequestID).Msg("dispatch log queue full, dropping record")
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case rec := <-p.queue:
			p.write(id, rec)
		case <-p.stopChan:
			for {
				select {
				case rec := <-p.queue:
					p.write(id, rec)
				default:
					log.Debug().Int("worker", id).Msg("dispatch log worker shutting down")
					return
				}
			}
		}
	}
}

func (p *Pool) write(id int, rec models.DispatchRecord) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = p.sink.Insert(ctx, rec)
		cancel()
		if err == nil {
			return
		}
		if attempt < maxAttempts {
			time.Sleep(p.backoff * time.Duration(attempt))
		}
	}
	log.Error().Err(err).Int("worker", id).Str("request_id", rec.RequestID).Msg("failed to write dispatch record")
}
