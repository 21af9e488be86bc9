// Package legacy adapts the read-only institute enrollment source. The source
// may be down at any time; lookups degrade to "unknown student" instead of
// failing the caller.
package legacy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"context"
)

// StudentInfo carries the display attributes the enrollment source knows
// about a student.
type StudentInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CareerID *int64 `json:"career_id,omitempty"`
	Program  string `json:"program,omitempty"`
}

// Client is an HTTP adapter over the legacy enrollment service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// LookupStudent returns enrollment data for the student, or nil when the
// student is unknown or the source is unavailable. It never returns an error
// for an outage; eligibility is computed without the enrichment.
func (c *Client) LookupStudent(ctx context.Context, studentID int64) (*StudentInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/students/%d", c.baseURL, studentID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("legacy source unavailable", slog.Any("error", err))
		return nil, nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("legacy source returned error", slog.Int("status", resp.StatusCode))
		}
		return nil, nil
	}
	var info StudentInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		c.logger.Warn("legacy source payload malformed", slog.Any("error", err))
		return nil, nil
	}
	return &info, nil
}

// LookupCareer returns the student's career id, or nil when unknown.
func (c *Client) LookupCareer(ctx context.Context, studentID int64) (*int64, error) {
	info, err := c.LookupStudent(ctx, studentID)
	if err != nil || info == nil {
		return nil, err
	}
	return info.CareerID, nil
}
