package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	pathFacilityByCode = "/api/facilities/by-code/{code}"
	pathFeedback       = "/api/feedback"
	pathStats          = "/api/stats"

	msgFacilityNotFound = "Facility not found"
	msgSubmitFailed     = "Failed to submit feedback"
	msgStatsFailed      = "Failed to load stats"

	HeaderRequestID = "X-Request-ID"
)

type requestIDKey struct{}

// WithRequestID attaches the inbound request id so outgoing backend calls
// can be correlated with it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client talks to the feedback backend. It performs no retries. Every call
// runs under a context derived from the caller's with the client timeout.
type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		panic("empty backend base URL provided to NewClient")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")

	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar()).
		SetRetryCount(0)
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if id := RequestIDFrom(r.Context()); id != "" {
			r.SetHeader(HeaderRequestID, id)
		}
		return nil
	})

	return &Client{http: rc, logger: logger, timeout: timeout}
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ResolveFacility looks a facility up by its QR code.
func (c *Client) ResolveFacility(ctx context.Context, code string) (Facility, error) {
	const op = "ResolveFacility"

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("code", code).
		Get(pathFacilityByCode)
	if err != nil {
		return Facility{}, c.transportError(op, err)
	}
	if !resp.IsSuccess() {
		return Facility{}, c.requestError(op, resp, msgFacilityNotFound)
	}

	var facility Facility
	if err := json.Unmarshal(resp.Body(), &facility); err != nil {
		return Facility{}, c.transportError(op, fmt.Errorf("decode facility: %w", err))
	}
	if facility.Code == "" {
		facility.Code = code
	}

	c.logger.Debug("facility resolved", zap.String("code", code), zap.String("name", facility.Name))
	return facility, nil
}

// SubmitFeedback posts one feedback record.
func (c *Client) SubmitFeedback(ctx context.Context, sub FeedbackSubmission) (Acknowledgement, error) {
	const op = "SubmitFeedback"

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sub).
		Post(pathFeedback)
	if err != nil {
		return nil, c.transportError(op, err)
	}
	if !resp.IsSuccess() {
		return nil, c.requestError(op, resp, msgSubmitFailed)
	}

	var ack Acknowledgement
	if err := json.Unmarshal(resp.Body(), &ack); err != nil {
		return nil, c.transportError(op, fmt.Errorf("decode acknowledgement: %w", err))
	}

	c.logger.Info("feedback submitted",
		zap.String("facility_code", sub.FacilityCode),
		zap.Int("rating", sub.Rating),
		zap.Bool("located", sub.UserLat != nil))
	return ack, nil
}

// FetchStats loads the aggregate counters and leaderboard.
func (c *Client) FetchStats(ctx context.Context) (StatsSummary, error) {
	const op = "FetchStats"

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		Get(pathStats)
	if err != nil {
		return StatsSummary{}, c.transportError(op, err)
	}
	if !resp.IsSuccess() {
		return StatsSummary{}, c.requestError(op, resp, msgStatsFailed)
	}

	var stats StatsSummary
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		return StatsSummary{}, c.transportError(op, fmt.Errorf("decode stats: %w", err))
	}

	c.logger.Debug("stats fetched",
		zap.Int64("total", stats.Counts.Total),
		zap.Int("leaderboard", len(stats.Leaderboard)))
	return stats, nil
}

func (c *Client) requestError(op string, resp *resty.Response, msg string) error {
	c.logger.Warn("backend request failed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.String("url", resp.Request.URL))
	return &RequestError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}

func (c *Client) transportError(op string, err error) error {
	c.logger.Warn("backend unreachable", zap.String("op", op), zap.Error(err))
	return &TransportError{Op: op, Err: err}
}
