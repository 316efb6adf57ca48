package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/visionforge/classifier-backend/internal/pkg/ctxutil"
	"github.com/visionforge/classifier-backend/internal/pkg/httpx"
	"github.com/visionforge/classifier-backend/internal/platform/envutil"
	"github.com/visionforge/classifier-backend/internal/platform/logger"
)

// Client sends device push notifications through the FCM legacy HTTP API.
type Client interface {
	SendToDevice(ctx context.Context, deviceToken string, n Notification) error
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Config struct {
	ServerKey  string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		ServerKey:  envutil.Str("FCM_SERVER_KEY", ""),
		BaseURL:    envutil.Str("FCM_BASE_URL", "https://fcm.googleapis.com"),
		Timeout:    time.Duration(envutil.Int("FCM_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxRetries: envutil.Int("FCM_MAX_RETRIES", 2),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return nil, fmt.Errorf("missing FCM_SERVER_KEY")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://fcm.googleapis.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "FCMClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type sendRequest struct {
	To           string       `json:"to"`
	Notification Notification `json:"notification"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "fcm: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	return fmt.Sprintf("fcm http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) SendToDevice(ctx context.Context, deviceToken string, n Notification) error {
	if strings.TrimSpace(deviceToken) == "" {
		return fmt.Errorf("fcm: device token required")
	}

	body := sendRequest{To: deviceToken, Notification: n}
	backoff := 1 * time.Second

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, err := c.sendOnce(ctx, body)
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("FCM send retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func (c *client) sendOnce(ctx context.Context, body sendRequest) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodPost, c.cfg.BaseURL+"/fcm/send", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "key="+c.cfg.ServerKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded sendResponse
	if json.Unmarshal(raw, &decoded) == nil && decoded.Failure > 0 && decoded.Success == 0 {
		return resp, fmt.Errorf("fcm: delivery rejected for all recipients")
	}
	return resp, nil
}
