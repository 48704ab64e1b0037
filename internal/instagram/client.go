package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/drissea/reelsync/pkg/config"
)

const (
	appID     = "936619743392459"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"
)

var (
	// ErrNotFound is returned when upstream has no record of the requested entity.
	ErrNotFound = errors.New("instagram: not found")
	// ErrRateLimited is returned once the retry budget for a throttled request is exhausted.
	ErrRateLimited = errors.New("instagram: rate limited")
)

// transientError marks upstream failures that are worth retrying on a later run.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err is a retryable upstream failure rather than
// a permanent one.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te) || errors.Is(err, ErrRateLimited)
}

// Client talks to the Instagram web API using session-cookie authentication.
type Client struct {
	http       *http.Client
	baseURL    string
	sessionID  string
	csrfToken  string
	docID      string
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a new Instagram client
func New(cfg *config.InstagramConfig, logger *zap.Logger) (*Client, error) {
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("ig_session_id is required")
	}

	logger = logger.With(zap.String("component", "instagram-client"))

	client := &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		sessionID:  cfg.SessionID,
		csrfToken:  cfg.CSRFToken,
		docID:      cfg.DocID,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:     logger,
	}
	if client.baseDelay <= 0 {
		client.baseDelay = time.Second
	}

	// The CSRF token can be harvested from an anonymous page view when the
	// operator has not pinned one.
	if client.csrfToken == "" {
		token, err := client.obtainCSRFToken()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain csrf token: %w", err)
		}
		client.csrfToken = token
	}

	logger.Info("Instagram client initialized", zap.String("base_url", client.baseURL))

	return client, nil
}

func (c *Client) obtainCSRFToken() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("csrftoken cookie not present in response")
}

func (c *Client) setHeaders(req *http.Request) {
	cookie := "csrftoken=" + c.csrfToken + ";"
	if c.sessionID != "" {
		cookie += " sessionid=" + c.sessionID + ";"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("X-CSRFToken", c.csrfToken)
	req.Header.Set("X-Instagram-AJAX", "1")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Cookie", cookie)
}

func (c *Client) send(ctx context.Context, method, path string, query, form url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return c.http.Do(req)
}

// doJSON performs a request with rate-limit and transient-failure retries and
// decodes the 200 response body into out. Throttled responses honor the
// Retry-After header when present, otherwise a doubling delay.
func (c *Client) doJSON(ctx context.Context, method, path string, query, form url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	delay := c.baseDelay
	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, path, query, form)
		if err == nil {
			switch {
			case resp.StatusCode == http.StatusOK:
				defer resp.Body.Close()
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("failed to decode %s response: %w", path, err)
				}
				return nil

			case resp.StatusCode == http.StatusNotFound:
				resp.Body.Close()
				return ErrNotFound

			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
				wait := retryAfter(resp, delay)
				resp.Body.Close()
				if attempt >= c.maxRetries {
					return fmt.Errorf("%s throttled after %d retries: %w", path, c.maxRetries, ErrRateLimited)
				}
				c.logger.Warn("Rate limited, backing off",
					zap.String("path", path),
					zap.Duration("wait", wait),
					zap.Int("attempt", attempt+1))
				if err := sleep(ctx, wait); err != nil {
					return err
				}
				delay *= 2
				continue

			case resp.StatusCode >= 500:
				resp.Body.Close()
				err = fmt.Errorf("upstream status %d", resp.StatusCode)

			default:
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				resp.Body.Close()
				return fmt.Errorf("%s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
			}
		}

		if attempt >= c.maxRetries {
			return &transientError{err: fmt.Errorf("%s failed after %d retries: %w", path, c.maxRetries, err)}
		}
		c.logger.Warn("Request failed, retrying",
			zap.String("path", path),
			zap.Duration("wait", delay),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
		delay *= 2
	}
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
