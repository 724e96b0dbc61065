package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/ctxutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/envutil"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
)

// Request is what the content-generation pipeline needs to author questions for
// one segment. PriorConcepts carries topical context from the previous segment.
type Request struct {
	CourseID      uuid.UUID `json:"course_id"`
	VideoID       string    `json:"video_id"`
	SegmentIndex  int       `json:"segment_index"`
	StartTime     float64   `json:"start_time"`
	EndTime       float64   `json:"end_time"`
	PriorConcepts []string  `json:"prior_concepts"`
	Planned       int       `json:"planned_questions_count,omitempty"`
}

type Question struct {
	Type             string          `json:"type"`
	Prompt           string          `json:"prompt"`
	Options          json.RawMessage `json:"options,omitempty"`
	CorrectAnswer    json.RawMessage `json:"correct_answer,omitempty"`
	Explanation      string          `json:"explanation,omitempty"`
	TimestampSeconds float64         `json:"timestamp_seconds,omitempty"`
}

type Result struct {
	QuestionsGenerated int        `json:"questions_generated"`
	NewConcepts        []string   `json:"new_concepts"`
	Questions          []Question `json:"questions"`
}

// Client invokes the remote pipeline. A non-nil error is a retryable segment
// failure; callers must not assume the remote side stopped working.
type Client interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("pipeline http %d: %s", e.StatusCode, e.Body)
}

type httpClient struct {
	log     *logger.Logger
	url     string
	token   string
	client  *http.Client
	metrics *observability.Metrics
}

// NewFromEnv builds the HTTP client from PIPELINE_URL. It returns nil, nil when
// the URL is unset so callers can decide how to run without a pipeline.
func NewFromEnv(log *logger.Logger) (Client, error) {
	url := strings.TrimSpace(envutil.String("PIPELINE_URL", ""))
	if url == "" {
		return nil, nil
	}
	return New(log, url, envutil.Seconds("PIPELINE_TIMEOUT_SECONDS", 150), envutil.String("PIPELINE_TOKEN", ""))
}

func New(log *logger.Logger, url string, timeout time.Duration, token string) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return nil, fmt.Errorf("missing pipeline url")
	}
	if timeout <= 0 {
		timeout = 150 * time.Second
	}
	return &httpClient{
		log:     log.With("client", "PipelineClient"),
		url:     url,
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
		metrics: observability.Current(),
	}, nil
}

func (c *httpClient) Invoke(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := c.do(ctx, req)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.ObservePipelineCall(status, time.Since(start))
	if err != nil {
		c.log.Warn("Pipeline invoke failed",
			"course_id", req.CourseID,
			"segment_index", req.SegmentIndex,
			"error", err,
		)
		return nil, err
	}
	return res, nil
}

func (c *httpClient) do(ctx context.Context, body Request) (*Result, error) {
	if body.PriorConcepts == nil {
		body.PriorConcepts = []string{}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			req.Header.Set("X-Trace-Id", td.TraceID)
		}
		if td.RequestID != "" {
			req.Header.Set("X-Request-Id", td.RequestID)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var out struct {
		Result
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("pipeline decode error: %w", err)
	}
	if out.OK != nil && !*out.OK {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "pipeline reported failure"
		}
		return nil, fmt.Errorf("%s", msg)
	}
	res := out.Result
	if res.QuestionsGenerated < len(res.Questions) {
		res.QuestionsGenerated = len(res.Questions)
	}
	return &res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
