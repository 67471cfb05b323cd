package hosted

import (
	"context"
	"log/slog"
	"time"

	gentleman "gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/body"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"trustmark/internal/c2pa"
	"trustmark/internal/domain"
)

// Client is the fast-path check against a hosted verification service.
// TryVerify never returns an error: any failure to get a usable answer
// (network, non-2xx, bad JSON) collapses to ok=false and the pipeline falls
// back to local verification.
type Client struct {
	cli        *gentleman.Client
	maxRetries int
	logger     *slog.Logger

	// backoff between retries, swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL string, requestTimeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cli := gentleman.New().URL(baseURL)
	cli.Use(timeout.Request(requestTimeout))
	return &Client{
		cli:        cli,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

type verifyRequest struct {
	URL string `json:"url"`
}

func (c *Client) TryVerify(ctx context.Context, url string) (bool, *domain.ManifestCheckResult) {
	attempts := c.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return false, nil
		}
		if ok, result := c.verifyOnce(url, attempt); ok {
			return true, result
		}
		if attempt < attempts {
			if err := c.sleep(ctx, time.Duration(attempt)*500*time.Millisecond); err != nil {
				return false, nil
			}
		}
	}
	return false, nil
}

func (c *Client) verifyOnce(url string, attempt int) (bool, *domain.ManifestCheckResult) {
	req := c.cli.Post()
	req.Path("/v1/verify")
	req.Use(body.JSON(verifyRequest{URL: url}))

	resp, err := req.Send()
	if err != nil {
		c.logger.Warn("hosted verifier unreachable", "url", url, "attempt", attempt, "error", err)
		return false, nil
	}
	defer resp.Close()
	if !resp.Ok {
		c.logger.Warn("hosted verifier returned non-2xx", "url", url, "attempt", attempt, "status", resp.StatusCode)
		return false, nil
	}

	result := c2pa.ParseHosted(resp.String())
	if result.Status == domain.ManifestError {
		c.logger.Warn("hosted verifier response unusable", "url", url, "notes", result.Notes)
		return false, nil
	}
	return true, &result
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
