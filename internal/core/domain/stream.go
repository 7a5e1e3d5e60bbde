package domain

import (
	"encoding/json"
	"time"
)

// StreamMode selects how a session's video leaves the device.
type StreamMode string

const (
	ModeRTMP       StreamMode = "rtmp"
	ModeHLS        StreamMode = "hls"
	ModeSimulation StreamMode = "simulation"
)

func (m StreamMode) Valid() bool {
	switch m {
	case ModeRTMP, ModeHLS, ModeSimulation:
		return true
	}
	return false
}

// StreamState is the lifecycle state of a user's stream.
type StreamState string

const (
	StatusStopped      StreamState = "stopped"
	StatusInitializing StreamState = "initializing"
	StatusActive       StreamState = "active"
	StatusError        StreamState = "error"
)

// StreamStatus is the last status recorded for a session. Stats is an opaque
// payload forwarded verbatim from the transport.
type StreamStatus struct {
	State        StreamState     `json:"status"`
	ErrorDetails string          `json:"error_details,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Stats        json.RawMessage `json:"stats,omitempty"`
}

// StatusEvent is a status update pushed asynchronously by the device transport.
type StatusEvent struct {
	State        StreamState     `json:"status"`
	ErrorDetails string          `json:"error_details,omitempty"`
	Stats        json.RawMessage `json:"stats,omitempty"`
}

type VideoParams struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Bitrate   int `json:"bitrate"`
	FrameRate int `json:"frame_rate"`
}

type AudioParams struct {
	Bitrate          int  `json:"bitrate"`
	SampleRate       int  `json:"sample_rate"`
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
}

// StreamConfig is the full configuration handed to the device transport when a
// stream is requested.
type StreamConfig struct {
	URL   string      `json:"url"`
	Video VideoParams `json:"video"`
	Audio AudioParams `json:"audio"`
}

// DefaultStreamConfig returns the fixed media parameters used for every stream:
// 1280x720 video at 2 Mbps / 30 fps, 128 kbps / 44.1 kHz audio with echo
// cancellation and noise suppression.
func DefaultStreamConfig(url string) StreamConfig {
	return StreamConfig{
		URL: url,
		Video: VideoParams{
			Width:     1280,
			Height:    720,
			Bitrate:   2_000_000,
			FrameRate: 30,
		},
		Audio: AudioParams{
			Bitrate:          128_000,
			SampleRate:       44_100,
			EchoCancellation: true,
			NoiseSuppression: true,
		},
	}
}

// HighlightResult is the outcome of configuring the highlighting service for a
// stream. EffectiveRTMPURL is the service's fixed ingest endpoint; HLSURL is
// set only when the service returned a playback URL.
type HighlightResult struct {
	EffectiveRTMPURL string
	HLSURL           string
}
