package distance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ORSMapProvider implements the MapProvider port against OpenRouteService:
// forward geocoding plus live-traffic car directions.
//
// Every call site shares one bounded worker pool and one retry policy
// (3 attempts, exponential backoff from a 2s base capped at 10s). The
// provider is safe for concurrent use.
type ORSMapProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	country string
	log     *zap.SugaredLogger
	sem     chan struct{}
}

const (
	maxAttempts    = 3
	backoffBase    = 2 * time.Second
	backoffCap     = 10 * time.Second
	requestTimeout = 15 * time.Second
)

func NewORSMapProvider(apiKey, baseURL string, workers int, log *zap.SugaredLogger) (*ORSMapProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if workers < 1 {
		workers = 1
	}

	return &ORSMapProvider{
		session: &http.Client{Timeout: requestTimeout},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving-car",
		country: "VN",
		log:     log,
		sem:     make(chan struct{}, workers),
	}, nil
}

func (o *ORSMapProvider) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (o *ORSMapProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429, 5xx) under
// the shared backoff policy while respecting context cancellation.
func (o *ORSMapProvider) doWithRetry(ctx context.Context, makeReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	backoff := retry.WithMaxRetries(maxAttempts-1, retry.WithCappedDuration(backoffCap, retry.NewExponential(backoffBase)))

	var resp *http.Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := makeReq(ctx)
		if err != nil {
			return fmt.Errorf("make request: %w", err)
		}

		r, err := o.do(req)
		if err == nil {
			resp = r
			return nil
		}

		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				return retry.RetryableError(err)
			}
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
