// Package monitor streams loss curves to a sidecar dashboard over HTTP so a
// training run can be watched live without the host process rendering
// anything itself.
package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// Service handles communication with the sidecar dashboard application
type Service struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
}

// Config contains configuration for the monitor service
type Config struct {
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`
}

// CurvePoint is a single (epoch, loss) sample on a loss curve.
type CurvePoint struct {
	Epoch int     `json:"epoch"`
	Loss  float64 `json:"loss"`
}

// CurvePayload is the JSON document POSTed to the sidecar for one run.
type CurvePayload struct {
	RunID     string       `json:"run_id"`
	RunName   string       `json:"run_name"`
	Timestamp time.Time    `json:"timestamp"`
	Points    []CurvePoint `json:"points"`
	FinalLoss float64      `json:"final_loss"`
	BestLoss  float64      `json:"best_loss"`
	Epochs    int          `json:"epochs"`
	Stopped   bool         `json:"stopped"`
	Reason    string       `json:"reason,omitempty"`
}

// Response represents the response from the monitor service
type Response struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CurveURL     string `json:"curve_url,omitempty"`
	DashboardURL string `json:"dashboard_url,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
}

// DefaultConfig returns default configuration for the monitor service
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    1 * time.Second,
	}
}

// NewService creates a new monitor service client
func NewService(config Config) *Service {
	return &Service{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		enabled: false,
	}
}

// Enable enables the monitor service
func (s *Service) Enable() {
	s.enabled = true
}

// Disable disables the monitor service
func (s *Service) Disable() {
	s.enabled = false
}

// IsEnabled returns whether the monitor service is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// SendCurve sends a loss curve to the sidecar dashboard service
func (s *Service) SendCurve(payload CurvePayload) (*Response, error) {
	if !s.enabled {
		return &Response{
			Success: false,
			Message: "Monitor service is disabled",
		}, nil
	}

	jsonData, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal curve payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/curve", s.baseURL)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "go-callbacks-monitor")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var curveResponse Response
	if err := sonic.Unmarshal(respBody, &curveResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &curveResponse, fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, curveResponse.Message)
	}

	return &curveResponse, nil
}

// SendCurveWithRetry sends a loss curve with retry logic
func (s *Service) SendCurveWithRetry(payload CurvePayload, config Config) (*Response, error) {
	if !s.enabled {
		return &Response{
			Success: false,
			Message: "Monitor service is disabled",
		}, nil
	}

	var lastErr error

	for attempt := 0; attempt < config.RetryAttempts; attempt++ {
		resp, err := s.SendCurve(payload)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if attempt < config.RetryAttempts-1 {
			time.Sleep(config.RetryDelay)
		}
	}

	return nil, fmt.Errorf("failed to send loss curve after %d attempts: %w", config.RetryAttempts, lastErr)
}

// CheckHealth checks if the monitor service is available
func (s *Service) CheckHealth() error {
	if !s.enabled {
		return fmt.Errorf("monitor service is disabled")
	}

	url := fmt.Sprintf("%s/health", s.baseURL)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send health check request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}
