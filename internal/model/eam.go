package model

import "time"

// EAMType distinguishes a standard Emergency Action Message from a SKYKING broadcast.
type EAMType string

const (
	EAMTypeEAM     EAMType = "EAM"
	EAMTypeSkyking EAMType = "SKYKING"
)

// EAMMessage is a detected, persisted Emergency Action Message, possibly
// correlated across several recording segments.
type EAMMessage struct {
	ID             string    `json:"id"`
	FeedID         string    `json:"feed_id"`
	Type           EAMType   `json:"type"`
	Header         string    `json:"header,omitempty"`
	MessageBody    string    `json:"message_body"`
	MessageLength  int       `json:"message_length,omitempty"`
	Confidence     int       `json:"confidence"`
	FirstDetected  time.Time `json:"first_detected"`
	LastDetected   time.Time `json:"last_detected"`
	SegmentIDs     []string  `json:"segment_ids"`
	MultiSegment   bool      `json:"multi_segment"`
	RawTranscription string  `json:"raw_transcription"`
	Codeword       string    `json:"codeword,omitempty"`
	TimeCode       string    `json:"time_code,omitempty"`
	Authentication string    `json:"authentication,omitempty"`
	RepeatCount    int       `json:"repeat_count"`
}

// RecordingSegment is one VOX-captured audio segment, immutable except for
// its transcription fields, which are filled exactly once.
type RecordingSegment struct {
	SegmentID             string
	FeedID                string
	StartTime             time.Time
	DurationMs            int64
	FilePath              string
	FileSize              int64
	Transcribed           bool
	TranscriptionText     string
	TranscriptionSegments []TranscriptSegment
	TranscribedAt         *time.Time
}

// TranscriptSegment is one word/phrase-level timestamp from an STT provider.
type TranscriptSegment struct {
	T0   float64 `json:"t0"`
	T1   float64 `json:"t1"`
	Text string  `json:"text"`
}

// Setting is a single category+key configuration override persisted by the
// Config Manager.
type Setting struct {
	Category  string
	Key       string
	ValueJSON string
	UpdatedAt time.Time
}
