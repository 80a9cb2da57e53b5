package config

// Category option sets. Each has a fixed shape with JSON tags matching the
// settings.value_json payload, and env-sourced defaults applied at boot
// before any store override is merged in.

type TAR1090Settings struct {
	Enabled      bool   `json:"enabled"`
	URL          string `json:"url"`
	PollInterval int    `json:"poll_interval"`
}

type ADSBExchangeSettings struct {
	Enabled      bool   `json:"enabled"`
	URL          string `json:"url"`
	APIKey       string `json:"api_key"`
	PollInterval int    `json:"poll_interval"`
}

type OpenSkySettings struct {
	Enabled      bool   `json:"enabled"`
	URL          string `json:"url"`
	PollInterval int    `json:"poll_interval"`
}

type AirframesSettings struct {
	Enabled bool   `json:"enabled"`
	WSURL   string `json:"ws_url"`
}

type EAMWatchSettings struct {
	Enabled      bool   `json:"enabled"`
	URL          string `json:"url"`
	Token        string `json:"token"`
	PollInterval int    `json:"poll_interval"`
}

type WhisperSettings struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Model   string `json:"model"`
}

type AudioSettings struct {
	VADThresholdDB      float64 `json:"vad_threshold_db"`
	SilenceTimeoutMS    int     `json:"silence_timeout_ms"`
	MinSegmentMS        int     `json:"min_segment_ms"`
	MaxSegmentMS        int     `json:"max_segment_ms"`
}

type YouTubeSettings struct {
	Enabled   bool   `json:"enabled"`
	StreamURL string `json:"stream_url"`
	FeedID    string `json:"feed_id"`
}

type BroadcastSettings struct {
	BusQueueSize int `json:"bus_queue_size"`
}

type SystemSettings struct {
	MessageRetentionDays int `json:"message_retention_days"`
	AircraftStaleHours   int `json:"aircraft_stale_hours"`
	PhotoRetentionDays   int `json:"photo_retention_days"`
}

type PhotosSettings struct {
	Enabled             bool   `json:"enabled"`
	APIBaseURL          string `json:"api_base_url"`
	MinRefetchIntervalH int    `json:"min_refetch_interval_hours"`
}

type TwitterSettings struct {
	Enabled     bool   `json:"enabled"`
	BearerToken string `json:"bearer_token"`
}

const (
	CategoryTAR1090      = "tar1090"
	CategoryADSBExchange = "adsbexchange"
	CategoryOpenSky      = "opensky"
	CategoryAirframes    = "airframes"
	CategoryEAMWatch     = "eamwatch"
	CategoryWhisper      = "whisper"
	CategoryAudio        = "audio"
	CategoryYouTube      = "youtube"
	CategoryBroadcast    = "broadcast"
	CategorySystem       = "system"
	CategoryPhotos       = "photos"
	CategoryTwitter      = "twitter"
)
