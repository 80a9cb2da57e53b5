package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
)

// transcriptionStore is the subset of store.Store the WorkerPool depends on.
type transcriptionStore interface {
	SaveTranscription(ctx context.Context, segmentID, text string, segments []model.TranscriptSegment) error
}

// WorkerPoolOptions configures the transcription dispatch pool.
type WorkerPoolOptions struct {
	Whisper   *WhisperClient
	Store     transcriptionStore
	Bus       *bus.Bus
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Log       zerolog.Logger
}

// WorkerPool drains TranscribeJobs queued by the Recorder, calls the Whisper
// server, persists the result, and publishes transcription_complete.
type WorkerPool struct {
	jobs    chan TranscribeJob
	opts    WorkerPoolOptions
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	completed atomic.Int64
	failed    atomic.Int64
}

func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan TranscribeJob, opts.QueueSize),
		opts:   opts,
		log:    opts.Log.With().Str("component", "whisper_dispatch").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Msg("transcription worker pool started")
}

// Stop signals workers to drain and waits for completion.
func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().Int64("completed", wp.completed.Load()).Int64("failed", wp.failed.Load()).Msg("transcription worker pool stopped")
}

// Enqueue adds a job to the queue. Returns false if the queue is full.
func (wp *WorkerPool) Enqueue(job TranscribeJob) bool {
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

// QueueDepth reports the number of jobs currently buffered.
func (wp *WorkerPool) QueueDepth() int { return len(wp.jobs) }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		if err := wp.processJob(log, job); err != nil {
			wp.failed.Add(1)
			log.Warn().Err(err).Str("segment_id", job.SegmentID).Msg("transcription failed")
		} else {
			wp.completed.Add(1)
		}
	}
}

func (wp *WorkerPool) processJob(log zerolog.Logger, job TranscribeJob) error {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.Timeout)
	defer cancel()

	resp, err := wp.opts.Whisper.Transcribe(ctx, job.FilePath)
	if err != nil {
		// Whisper requests are retried once before being counted as failed.
		resp, err = wp.opts.Whisper.Transcribe(ctx, job.FilePath)
		if err != nil {
			return err
		}
	}

	segments := make([]model.TranscriptSegment, len(resp.Segments))
	for i, s := range resp.Segments {
		segments[i] = model.TranscriptSegment{T0: s.Start, T1: s.End, Text: s.Text}
	}

	if wp.opts.Store != nil {
		if err := wp.opts.Store.SaveTranscription(ctx, job.SegmentID, resp.Text, segments); err != nil {
			return err
		}
	}
	if wp.opts.Bus != nil {
		wp.opts.Bus.Publish(bus.TopicTranscriptionComplete, TranscriptionResult{
			SegmentID: job.SegmentID,
			FeedID:    job.FeedID,
			StartTime: job.StartTime,
			Text:      resp.Text,
			Segments:  segments,
		})
	}
	log.Debug().Str("segment_id", job.SegmentID).Int("chars", len(resp.Text)).Msg("transcription complete")
	return nil
}

// TranscriptionResult is the payload published on bus.TopicTranscriptionComplete
// once a segment's Whisper transcription returns.
type TranscriptionResult struct {
	SegmentID string
	FeedID    string
	StartTime time.Time
	Text      string
	Segments  []model.TranscriptSegment
}
