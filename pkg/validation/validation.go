package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// UserIDRegex validates user ID format
var UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9@._-]+$`)

// streamingSchemes are the URL schemes recognized as streaming targets.
var streamingSchemes = map[string]bool{
	"rtmp":  true,
	"rtmps": true,
	"rtsp":  true,
	"srt":   true,
}

// ValidateUserID validates a user ID.
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(id) > 128 {
		return fmt.Errorf("user ID is too long (max 128 characters)")
	}
	if !UserIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user ID format")
	}
	return nil
}

// ValidateStreamURL checks that a stream target URL parses and carries a
// recognized streaming scheme. A scheme failure here is advisory: callers log
// it rather than rejecting the URL.
func ValidateStreamURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if !streamingSchemes[u.Scheme] {
		return fmt.Errorf("unrecognized streaming scheme %q (expected rtmp, rtmps, rtsp or srt)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateStreamMode validates a stream mode string.
func ValidateStreamMode(mode string) error {
	switch mode {
	case "rtmp", "hls", "simulation":
		return nil
	}
	return fmt.Errorf("invalid stream mode (must be rtmp, hls, or simulation)")
}
