package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"dispatch-worklist-service/internal/ports"
)

const (
	maxAttempts    = 5
	attemptTimeout = 20 * time.Second
	// Backoff grows linearly: 5s after the first attempt, 10s after the
	// second, and so on.
	backoffStep = 5 * time.Second
)

// Standardizer delegates free-form Vietnamese addresses to a generative
// model behind a fixed prompt contract.
//
// The model call is fully degraded: timeouts and malformed responses retry
// up to the attempt cap, and exhaustion yields a deterministic fallback
// carrying the original input — never an error that could abort a batch.
type Standardizer struct {
	session *http.Client
	baseURL string
	apiKey  string
	model   string
	log     *zap.SugaredLogger

	// Fixed-size worker pool: the model endpoint tolerates far less
	// concurrency than the mapping provider.
	sem chan struct{}
}

func NewStandardizer(baseURL, apiKey, model string, workers int, log *zap.SugaredLogger) *Standardizer {
	if workers < 1 {
		workers = 1
	}
	return &Standardizer{
		session: &http.Client{Timeout: attemptTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		log:     log,
		sem:     make(chan struct{}, workers),
	}
}

// The prompt contract: the model must answer with a bare JSON object
// holding exactly these keys, all null when the address is unresolvable.
const promptTemplate = `Chuẩn hóa địa chỉ giao hàng Việt Nam sau thành JSON.
Trả lời CHỈ bằng một object JSON với đúng các khóa:
{"address": "<địa chỉ đầy đủ đã chuẩn hóa>", "district": "<quận/huyện>", "ward": "<phường/xã>"}
Nếu không xác định được, trả về cả ba giá trị là null.
Địa chỉ (mã đơn %s): %s`

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type standardizedPayload struct {
	Address  *string `json:"address"`
	District *string `json:"district"`
	Ward     *string `json:"ward"`
}

// Standardize resolves one raw address into a {address, district, ward}
// triple, or an explicit unresolved result.
func (s *Standardizer) Standardize(ctx context.Context, rawAddress, orderID string) (ports.StandardResult, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return ports.StandardResult{Address: rawAddress, Failed: true}, ctx.Err()
	}

	prompt := fmt.Sprintf(promptTemplate, orderID, rawAddress)

	attempt := 0
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if attempt >= maxAttempts {
			return 0, true
		}
		return time.Duration(attempt) * backoffStep, false
	})

	var result ports.StandardResult
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.callOnce(ctx, prompt)
		if err != nil {
			// Timeouts and malformed output are both retryable up to the
			// cap; only context cancellation aborts early.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Debugw("standardize attempt failed", "order_id", orderID, "err", err)
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ports.StandardResult{Address: rawAddress, Failed: true}, err
		}
		s.log.Warnw("standardize attempts exhausted", "order_id", orderID, "err", err)
		return ports.StandardResult{Address: rawAddress, Failed: true}, nil
	}

	if !result.Resolved {
		result.Address = rawAddress
	}
	return result, nil
}

func (s *Standardizer) callOnce(ctx context.Context, prompt string) (ports.StandardResult, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return ports.StandardResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.StandardResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.session.Do(req)
	if err != nil {
		return ports.StandardResult{}, fmt.Errorf("model call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.StandardResult{}, fmt.Errorf("model status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.StandardResult{}, fmt.Errorf("decode model response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return ports.StandardResult{}, fmt.Errorf("model returned no candidates")
	}

	return parseModelText(decoded.Candidates[0].Content.Parts[0].Text)
}

// parseModelText validates and parses the structured payload the model was
// asked for. The text may arrive wrapped in a fenced code block and with
// stray escape characters.
func parseModelText(text string) (ports.StandardResult, error) {
	cleaned := stripFences(text)
	cleaned = strings.ReplaceAll(cleaned, `\n`, " ")
	cleaned = strings.ReplaceAll(cleaned, `\"`, `"`)

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return ports.StandardResult{}, fmt.Errorf("no JSON object in model output")
	}

	raw := []byte(cleaned[start : end+1])

	// Required keys must exist before the payload is accepted; a response
	// missing any of them is malformed, not "unresolvable".
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return ports.StandardResult{}, fmt.Errorf("parse model output: %w", err)
	}
	for _, k := range []string{"address", "district", "ward"} {
		if _, ok := keys[k]; !ok {
			return ports.StandardResult{}, fmt.Errorf("model output missing key %q", k)
		}
	}

	var payload standardizedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.StandardResult{}, fmt.Errorf("parse model output: %w", err)
	}

	// Explicit "unresolvable": all keys present, all null.
	if payload.Address == nil || payload.District == nil || payload.Ward == nil {
		return ports.StandardResult{}, nil
	}

	addr := strings.TrimSpace(*payload.Address)
	district := strings.TrimSpace(*payload.District)
	ward := strings.TrimSpace(*payload.Ward)
	if addr == "" || district == "" || ward == "" {
		return ports.StandardResult{}, nil
	}

	return ports.StandardResult{
		Address:  addr,
		District: district,
		Ward:     ward,
		Resolved: true,
	}, nil
}

func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if i := strings.LastIndex(t, "```"); i >= 0 {
			t = t[:i]
		}
	}
	return strings.TrimSpace(t)
}
