// Package model holds the canonical data types shared across AirWave's
// ingestion, processing, tracking, and storage layers.
package model

import "time"

// SourceType enumerates the upstream feed kinds a Message can originate from.
type SourceType string

const (
	SourceACARS SourceType = "acars"
	SourceVDLM2 SourceType = "vdlm2"
	SourceHFDL  SourceType = "hfdl"
	SourceADSB  SourceType = "adsb"
	SourceHFGCS SourceType = "hfgcs"
	SourceEAM   SourceType = "eam"
)

// Category classifies a message's content for routing and display.
type Category string

const (
	CategoryOOOI       Category = "oooi"
	CategoryPosition   Category = "position"
	CategoryCPDLC      Category = "cpdlc"
	CategoryWeather    Category = "weather"
	CategoryPerf       Category = "performance"
	CategoryATCRequest Category = "atc_request"
	CategoryHFGCS      Category = "hfgcs"
	CategoryADSB       Category = "adsb"
	CategoryFreetext   Category = "freetext"
)

// FlightPhase is the derived lifecycle stage of an aircraft at message time.
type FlightPhase string

const (
	PhaseTaxi     FlightPhase = "TAXI"
	PhaseTakeoff  FlightPhase = "TAKEOFF"
	PhaseCruise   FlightPhase = "CRUISE"
	PhaseDescent  FlightPhase = "DESCENT"
	PhaseApproach FlightPhase = "APPROACH"
	PhaseLanding  FlightPhase = "LANDING"
	PhaseUnknown  FlightPhase = "UNKNOWN"
)

// SourceInfo identifies which feed instance produced a message.
type SourceInfo struct {
	Type      string  `json:"type"`
	StationID string  `json:"station_id,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
	API       string  `json:"api,omitempty"`
}

// Identity is the optional aircraft-identifying subset of a message.
type Identity struct {
	Flight  string `json:"flight,omitempty"`
	Tail    string `json:"tail,omitempty"`
	Hex     string `json:"hex,omitempty"`
	Airline string `json:"airline,omitempty"`
}

// Position is an optional geographic fix.
type Position struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	AltitudeFt  float64 `json:"altitude_ft"`
	Coordinates string  `json:"coordinates_string,omitempty"`
}

// Kinematics is optional instantaneous motion state.
type Kinematics struct {
	GroundSpeed  float64 `json:"ground_speed,omitempty"`
	Heading      float64 `json:"heading,omitempty"`
	VerticalRate float64 `json:"vertical_rate,omitempty"`
	OnGround     bool    `json:"on_ground,omitempty"`
	Squawk       string  `json:"squawk,omitempty"`
}

// OOOIExtension carries the event/time extracted from an OOOI message.
type OOOIExtension struct {
	Event string `json:"event"`
	Time  string `json:"time"`
}

// Validation holds the outcome of running a message through the Schema Validator.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Message is the canonical, immutable-after-persist representation of any
// ingested record, regardless of source.
type Message struct {
	ID        string     `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Source    SourceInfo `json:"source"`
	SourceType SourceType `json:"source_type"`

	Identity   *Identity   `json:"identity,omitempty"`
	Position   *Position   `json:"position,omitempty"`
	Kinematics *Kinematics `json:"kinematics,omitempty"`

	Text     string      `json:"text,omitempty"`
	Label    string      `json:"label,omitempty"`
	Category Category    `json:"category,omitempty"`
	Phase    FlightPhase `json:"flight_phase,omitempty"`

	OOOI       *OOOIExtension `json:"oooi,omitempty"`
	CPDLCType  string         `json:"cpdlc_type,omitempty"`
	HFGCSType  string         `json:"hfgcs_type,omitempty"`

	Validation Validation `json:"validation"`

	MessageNumber int64 `json:"message_number"`
}

// Clone returns a deep-enough copy safe for concurrent reads after the
// pipeline hands a message to multiple downstream consumers (tracker, bus,
// store) — mutation of nested pointers by one consumer must not leak into
// another's view.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Identity != nil {
		id := *m.Identity
		cp.Identity = &id
	}
	if m.Position != nil {
		p := *m.Position
		cp.Position = &p
	}
	if m.Kinematics != nil {
		k := *m.Kinematics
		cp.Kinematics = &k
	}
	if m.OOOI != nil {
		o := *m.OOOI
		cp.OOOI = &o
	}
	if len(m.Validation.Errors) > 0 {
		errs := make([]string, len(m.Validation.Errors))
		copy(errs, m.Validation.Errors)
		cp.Validation.Errors = errs
	}
	return &cp
}
