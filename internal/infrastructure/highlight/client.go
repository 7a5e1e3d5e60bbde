package highlight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
	"facestream/pkg/utils"

	"go.uber.org/zap"
)

// Config contains highlight client configuration.
type Config struct {
	// BaseURL is the configuration API of the highlighting service.
	BaseURL string
	// IngestHost is the host of the service's fixed RTMP ingest endpoint.
	IngestHost string
	// DetectEvery runs face detection once every Nth frame.
	DetectEvery int
	// SimilarityThreshold is the cosine similarity threshold for face matching.
	SimilarityThreshold float64
}

// Client negotiates per-stream routing with the external highlighting service.
// It performs a single attempt per call: retry policy belongs to the caller,
// and none is applied in this system.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

type configRequest struct {
	DetectEvery         int     `json:"detect_every"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	OutputHLS           bool    `json:"output_hls,omitempty"`
	OutputRTMP          string  `json:"output_rtmp,omitempty"`
}

type configResponse struct {
	OutputURL string `json:"output_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

func NewClient(config Config, logger *zap.SugaredLogger) (ports.HighlightConfigurer, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if config.IngestHost == "" {
		return nil, fmt.Errorf("ingest host cannot be empty")
	}
	if config.DetectEvery <= 0 {
		config.DetectEvery = 1
	}
	if config.SimilarityThreshold <= 0 {
		config.SimilarityThreshold = 0.3
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// StreamKey derives the highlighting service key for a user: a fixed prefix
// plus the user ID with every rune outside the service's key namespace
// replaced. Deterministic and non-reversible, but collision-free for the
// account IDs this system issues.
func StreamKey(id domain.UserID) string {
	return "user_" + utils.SanitizeKey(string(id))
}

// IngestURL returns the fixed RTMP ingest endpoint for a stream key.
func (c *Client) IngestURL(streamKey string) string {
	return fmt.Sprintf("rtmp://%s/live/%s", c.config.IngestHost, streamKey)
}

func (c *Client) Configure(ctx context.Context, id domain.UserID, mode domain.StreamMode, targetRTMPURL string) (domain.HighlightResult, error) {
	streamKey := StreamKey(id)

	req := configRequest{
		DetectEvery:         c.config.DetectEvery,
		SimilarityThreshold: c.config.SimilarityThreshold,
	}
	if mode == domain.ModeHLS {
		req.OutputHLS = true
	} else {
		req.OutputRTMP = targetRTMPURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.HighlightResult{}, &domain.HighlightConfigError{Detail: "failed to encode request", Err: err}
	}

	endpoint := fmt.Sprintf("%s/api/config/%s", strings.TrimRight(c.config.BaseURL, "/"), streamKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.HighlightResult{}, &domain.HighlightConfigError{Detail: "failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.HighlightResult{}, &domain.HighlightConfigError{Detail: "highlight service unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.HighlightResult{}, &domain.HighlightConfigError{StatusCode: resp.StatusCode, Detail: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(respBody))
		var parsed configResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != "" {
			detail = parsed.Error
		}
		return domain.HighlightResult{}, &domain.HighlightConfigError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var parsed configResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.HighlightResult{}, &domain.HighlightConfigError{StatusCode: resp.StatusCode, Detail: "invalid response JSON", Err: err}
	}

	result := domain.HighlightResult{
		// Once highlighting is engaged, the device publishes to the service's
		// ingest endpoint; the user's own target is forwarded to internally by
		// the service.
		EffectiveRTMPURL: c.IngestURL(streamKey),
	}
	if mode == domain.ModeHLS {
		result.HLSURL = parsed.OutputURL
	}

	c.logger.Infow("highlight service configured",
		"stream_key", streamKey,
		"mode", mode,
		"ingest_url", result.EffectiveRTMPURL,
		"hls_url", result.HLSURL,
	)
	return result, nil
}
