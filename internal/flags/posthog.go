package flags

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PostHogSource evaluates flags through the PostHog /decide endpoint
type PostHogSource struct {
	httpClient *http.Client
	host       string
	apiKey     string
	distinctID string
}

// NewPostHogSource creates a PostHog-backed flag source
func NewPostHogSource(host, apiKey, distinctID string, timeout time.Duration) *PostHogSource {
	return &PostHogSource{
		httpClient: &http.Client{Timeout: timeout},
		host:       strings.TrimRight(host, "/"),
		apiKey:     apiKey,
		distinctID: distinctID,
	}
}

type decideRequest struct {
	APIKey     string `json:"api_key"`
	DistinctID string `json:"distinct_id"`
}

type decideResponse struct {
	FeatureFlags map[string]json.RawMessage `json:"featureFlags"`
}

// GetVariantFlag asks PostHog for the flags of the configured distinct id
func (s *PostHogSource) GetVariantFlag(ctx context.Context, key string) (Value, error) {
	body, err := json.Marshal(decideRequest{APIKey: s.apiKey, DistinctID: s.distinctID})
	if err != nil {
		return Absent, fmt.Errorf("marshal decide request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/decide/?v=3", bytes.NewReader(body))
	if err != nil {
		return Absent, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Absent, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Absent, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded decideResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Absent, fmt.Errorf("decode decide response: %w", err)
	}

	raw, ok := decoded.FeatureFlags[key]
	if !ok {
		return Absent, nil
	}
	return decodeValue(raw), nil
}

// decodeValue maps a JSON flag payload to a Value. Multivariate flags are
// strings, boolean flags are stringified, anything else is absent.
func decodeValue(raw json.RawMessage) Value {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return String(s)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return Bool(b)
	}
	return Absent
}
