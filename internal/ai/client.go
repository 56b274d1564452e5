package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEndpoint indicates the inference endpoint could not be reached
	// or timed out.
	ErrEndpoint = errors.New("inference endpoint unreachable")

	// ErrInsufficientFrames is returned before any network call when a
	// multi-frame operation receives fewer frames than it requires.
	ErrInsufficientFrames = errors.New("insufficient frames")
)

// ProgressFunc is fired after each unit of a batch or sequential operation
// completes, carrying the running count and the per-unit result. Intended
// for progress reporting, not flow control.
type ProgressFunc func(done, total int, pair PairComparison)

// RetryPolicy decides whether and how a failed endpoint call is retried.
type RetryPolicy interface {
	MaxAttempts() int
	Backoff(attempt int) time.Duration
	Retryable(err error) bool
}

// NoRetry surfaces every failure to the caller immediately; recovery is a
// user-initiated re-invocation. This is the default posture.
type NoRetry struct{}

func (NoRetry) MaxAttempts() int          { return 1 }
func (NoRetry) Backoff(int) time.Duration { return 0 }
func (NoRetry) Retryable(error) bool      { return false }

// ExponentialBackoff retries endpoint-level failures with doubling delays.
// Schema errors are terminal and never retried.
type ExponentialBackoff struct {
	Attempts  int
	BaseDelay time.Duration
}

func (p ExponentialBackoff) MaxAttempts() int { return p.Attempts }

func (p ExponentialBackoff) Backoff(attempt int) time.Duration {
	return p.BaseDelay * (1 << (attempt - 1))
}

func (p ExponentialBackoff) Retryable(err error) bool {
	return errors.Is(err, ErrEndpoint)
}

type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Retry       RetryPolicy
}

// Client talks to a vision-capable chat-completions endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	retry       RetryPolicy
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = NoRetry{}
	}
	return &Client{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       cfg.Retry,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// AnalyzeFrame requests a structured description of a single frame.
func (c *Client) AnalyzeFrame(ctx context.Context, path string) AnalysisResult {
	img, err := c.imagePart(path)
	if err != nil {
		return AnalysisResult{Path: path, Error: err.Error()}
	}

	content, err := c.chat(ctx, []chatMessage{{
		Role:    "user",
		Content: []contentPart{{Type: "text", Text: framePrompt}, img},
	}})
	if err != nil {
		return AnalysisResult{Path: path, Error: err.Error()}
	}

	analysis, err := ParseFrameAnalysis(content)
	if err != nil {
		return AnalysisResult{Path: path, Error: err.Error()}
	}

	return AnalysisResult{Success: true, Path: path, Analysis: analysis}
}

// CompareFrames requests an action comparison between a start and end frame.
func (c *Client) CompareFrames(ctx context.Context, startPath, endPath string) FrameComparisonResult {
	result := FrameComparisonResult{StartPath: startPath, EndPath: endPath}

	startImg, err := c.imagePart(startPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	endImg, err := c.imagePart(endPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	content, err := c.chat(ctx, []chatMessage{{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: comparePrompt},
			{Type: "text", Text: "start:"},
			startImg,
			{Type: "text", Text: "end:"},
			endImg,
		},
	}})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	comparison, err := ParseComparison(content)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Comparison = comparison
	return result
}

// AnalyzeFlow performs N-1 pairwise comparisons over consecutive frames, in
// index order, sequentially. Each pair's failure is captured per pair and
// does not abort the remaining pairs. A cancelled context stops further
// units promptly and returns the partial result alongside the context error.
func (c *Client) AnalyzeFlow(ctx context.Context, paths []string, progress ProgressFunc) (*FlowResult, error) {
	if len(paths) < 2 {
		return nil, fmt.Errorf("%w: flow analysis needs at least 2 frames, got %d", ErrInsufficientFrames, len(paths))
	}

	total := len(paths) - 1
	flow := &FlowResult{Success: true, Pairs: make([]PairComparison, 0, total)}

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			flow.Success = false
			return flow, ctx.Err()
		default:
		}

		comparison := c.CompareFrames(ctx, paths[i], paths[i+1])
		pair := PairComparison{
			PairIndex:  i,
			StartPath:  comparison.StartPath,
			EndPath:    comparison.EndPath,
			Success:    comparison.Success,
			Comparison: comparison.Comparison,
			Error:      comparison.Error,
		}
		if !pair.Success {
			flow.Success = false
			c.logger.Warn("flow pair failed", "pair", i, "error", pair.Error)
		}
		flow.Pairs = append(flow.Pairs, pair)

		if progress != nil {
			progress(i+1, total, pair)
		}
	}

	return flow, nil
}

// AnalyzeNarrative sends all frames in a single request and returns a
// structured scene interpretation. The result is enriched with a
// deterministic scene identity, the originating frame list and a creation
// timestamp.
func (c *Client) AnalyzeNarrative(ctx context.Context, paths []string) (*SceneAnalysis, error) {
	if len(paths) < 2 {
		return nil, fmt.Errorf("%w: narrative analysis needs at least 2 frames, got %d", ErrInsufficientFrames, len(paths))
	}

	parts := []contentPart{{Type: "text", Text: narrativeUserPrompt}}
	for _, path := range paths {
		img, err := c.imagePart(path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, img)
	}

	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: []contentPart{{Type: "text", Text: narrativeSystemPrompt}}},
		{Role: "user", Content: parts},
	})
	if err != nil {
		return nil, err
	}

	scene, err := ParseSceneAnalysis(content)
	if err != nil {
		return nil, err
	}

	scene.SceneID = SceneID(paths)
	scene.Frames = append([]string(nil), paths...)
	scene.Timestamp = time.Now().UTC()
	return scene, nil
}

// SceneID derives a stable identifier for a set of frame paths. The paths
// are sorted before hashing, so the identity is order-independent even
// though narrative content is order-sensitive: distinct orderings of the
// same set share one identity.
func SceneID(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	digest := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return "scene_" + hex.EncodeToString(digest[:])[:12]
}

func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	attempts := c.retry.MaxAttempts()
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.retry.Backoff(attempt - 1)
			c.logger.Warn("retrying endpoint call", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		content, err := c.doChat(ctx, messages)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !c.retry.Retryable(err) {
			return "", err
		}
	}

	return "", lastErr
}

func (c *Client) doChat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEndpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrEndpoint, err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("%w: status %d", ErrEndpoint, resp.StatusCode)
		}
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("endpoint error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrEndpoint, resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from endpoint")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// imagePart embeds a frame as an inline base64 data URI.
func (c *Client) imagePart(path string) (contentPart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contentPart{}, fmt.Errorf("reading frame: %w", err)
	}

	uri := fmt.Sprintf("data:%s;base64,%s", mimeForPath(path), base64.StdEncoding.EncodeToString(data))
	return contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}}, nil
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
