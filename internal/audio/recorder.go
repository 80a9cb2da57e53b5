package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/bus"
	"github.com/airwave/airwave/internal/model"
)

// segmentStore is the subset of store.Store the Recorder depends on.
type segmentStore interface {
	SaveRecording(ctx context.Context, seg *model.RecordingSegment) error
}

// Dispatcher hands a closed segment off for transcription; implemented by
// the package's WorkerPool.
type Dispatcher interface {
	Enqueue(job TranscribeJob) bool
}

// TranscribeJob is a finished recording segment awaiting transcription.
type TranscribeJob struct {
	SegmentID string
	FilePath  string
	FeedID    string
	StartTime time.Time
}

// Recorder runs one independent VAD state machine per channel (a mono feed,
// or the L/R halves of a stereo one) and writes WAV segments as speech
// begins and ends.
type Recorder struct {
	mediaDir   string
	thresholds Thresholds
	store      segmentStore
	dispatcher Dispatcher
	bus        *bus.Bus
	log        zerolog.Logger

	mu       sync.Mutex
	channels map[string]*channel
}

type channel struct {
	vad       *VAD
	writer    *wavWriter
	segmentID string
	startTime time.Time
	path      string
}

func NewRecorder(mediaDir string, thresholds Thresholds, store segmentStore, dispatcher Dispatcher, b *bus.Bus, log zerolog.Logger) *Recorder {
	return &Recorder{
		mediaDir:   mediaDir,
		thresholds: thresholds,
		store:      store,
		dispatcher: dispatcher,
		bus:        b,
		log:        log.With().Str("component", "vox_recorder").Logger(),
		channels:   make(map[string]*channel),
	}
}

// Feed processes one mono PCM frame for feedID at time t.
func (r *Recorder) Feed(ctx context.Context, feedID string, t time.Time, frame []byte) {
	r.feedChannel(ctx, feedID, t, frame)
}

// FeedStereo splits an interleaved int16 stereo frame into independent L/R
// channels, named {feedId}_L and {feedId}_R, each with its own VAD.
func (r *Recorder) FeedStereo(ctx context.Context, feedID string, t time.Time, frame []byte) {
	left, right := deinterleaveStereo(frame)
	r.feedChannel(ctx, feedID+"_L", t, left)
	r.feedChannel(ctx, feedID+"_R", t, right)
}

func deinterleaveStereo(frame []byte) (left, right []byte) {
	pairs := len(frame) / 4
	left = make([]byte, pairs*2)
	right = make([]byte, pairs*2)
	for i := 0; i < pairs; i++ {
		copy(left[i*2:i*2+2], frame[i*4:i*4+2])
		copy(right[i*2:i*2+2], frame[i*4+2:i*4+4])
	}
	return left, right
}

func (r *Recorder) feedChannel(ctx context.Context, channelID string, t time.Time, frame []byte) {
	r.mu.Lock()
	ch, ok := r.channels[channelID]
	if !ok {
		ch = &channel{vad: NewVAD(r.thresholds)}
		r.channels[channelID] = ch
	}
	r.mu.Unlock()

	peak := peakAmplitude(frame)
	trans := ch.vad.Step(t, peak)

	switch {
	case trans.State == Speaking && trans.EnteredNow:
		r.openSegment(ch, channelID, t)
	case trans.State == Closing && trans.EnteredNow:
		r.closeSegment(ctx, ch, channelID, t)
	}

	if ch.writer != nil {
		if err := ch.writer.Write(frame); err != nil {
			r.log.Error().Err(err).Str("channel", channelID).Msg("wav write failed")
		}
	}
}

func (r *Recorder) openSegment(ch *channel, channelID string, t time.Time) {
	filename := fmt.Sprintf("%s_%d.wav", channelID, t.UnixMilli())
	path := filepath.Join(r.mediaDir, filename)
	w, err := newWAVWriter(path)
	if err != nil {
		r.log.Error().Err(err).Str("channel", channelID).Msg("open wav writer failed")
		return
	}
	ch.writer = w
	ch.segmentID = uuid.NewString()
	ch.startTime = t
	ch.path = path
}

func (r *Recorder) closeSegment(ctx context.Context, ch *channel, channelID string, t time.Time) {
	if ch.writer == nil {
		return
	}
	size, err := ch.writer.Close()
	duration := t.Sub(ch.startTime)
	segmentID, path := ch.segmentID, ch.path
	ch.writer = nil
	if err != nil {
		r.log.Error().Err(err).Str("channel", channelID).Msg("close wav writer failed")
		return
	}

	seg := &model.RecordingSegment{
		SegmentID:  segmentID,
		FeedID:     channelID,
		StartTime:  ch.startTime,
		DurationMs: duration.Milliseconds(),
		FilePath:   path,
		FileSize:   size,
	}
	if r.store != nil {
		if err := r.store.SaveRecording(ctx, seg); err != nil {
			r.log.Error().Err(err).Str("segment_id", segmentID).Msg("persist recording segment failed")
		}
	}
	if r.bus != nil {
		r.bus.Publish(bus.TopicRecordingComplete, seg)
	}
	if r.dispatcher != nil {
		if !r.dispatcher.Enqueue(TranscribeJob{SegmentID: segmentID, FilePath: path, FeedID: channelID, StartTime: seg.StartTime}) {
			r.log.Warn().Str("segment_id", segmentID).Msg("transcription queue full, dropping segment")
		}
	}
}
