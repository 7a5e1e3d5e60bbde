package domain

import "context"

// PersistentSettings are per-user preferences that survive connect/disconnect
// cycles. A record is created lazily on first write and never deleted.
type PersistentSettings struct {
	RTMPURL                 string     `json:"rtmp_url"`
	StreamMode              StreamMode `json:"stream_mode"`
	FaceHighlightingEnabled bool       `json:"face_highlighting_enabled"`
}

// SettingsPatch carries a partial settings update; nil fields are left
// untouched by a merge.
type SettingsPatch struct {
	RTMPURL                 *string     `json:"rtmp_url,omitempty"`
	StreamMode              *StreamMode `json:"stream_mode,omitempty"`
	FaceHighlightingEnabled *bool       `json:"face_highlighting_enabled,omitempty"`
}

// DeviceChannel is the send side of a connected device session. The session
// registry holds a non-owning reference to it; its lifecycle belongs to the
// transport.
type DeviceChannel interface {
	SendDisplayText(ctx context.Context, text string) error
	RequestStream(ctx context.Context, cfg StreamConfig) error
	StopStream(ctx context.Context) error
}

// SessionState is the ephemeral per-user state that exists only while a device
// session is connected. RTMPURL is the effective URL in use, which may point at
// the highlighting service rather than the user's configured target.
type SessionState struct {
	UserID                  UserID        `json:"user_id"`
	RTMPURL                 string        `json:"rtmp_url"`
	StreamMode              StreamMode    `json:"stream_mode"`
	FaceHighlightingEnabled bool          `json:"face_highlighting_enabled"`
	HLSURL                  string        `json:"hls_url,omitempty"`
	Status                  StreamStatus  `json:"status"`
	Channel                 DeviceChannel `json:"-"`
}
