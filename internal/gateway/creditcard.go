package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

const (
	breakerName    = "creditCardService"
	statusApproved = "APPROVED"
)

// CardApprovalConfig tunes the card approval call and its resilience policy.
type CardApprovalConfig struct {
	BaseURL  string
	BasePath string
	Timeout  time.Duration

	// FailureRate is a percentage of failed calls that opens the breaker
	// once MinCalls have been observed inside Window.
	FailureRate   float64
	MinCalls      uint32
	Window        time.Duration
	OpenWait      time.Duration
	HalfOpenCalls uint32

	RetryAttempts uint64
	RetryWait     time.Duration
}

// CardApprovalClient asks the external card service whether a payment
// reference was approved.
type CardApprovalClient struct {
	endpoint  string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[bool]
	attempts  uint64
	retryWait time.Duration
}

// clientError is a 4xx answer: the request itself was refused.
type clientError struct {
	Status int
	Body   string
}

func (e *clientError) Error() string {
	return fmt.Sprintf("card service returned %d: %s", e.Status, e.Body)
}

// serverError is a 5xx answer and is retried.
type serverError struct {
	Status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("card service returned %d", e.Status)
}

type paymentStatusRequest struct {
	PaymentReference string `json:"paymentReference"`
}

type paymentStatusResponse struct {
	Status string `json:"status"`
}

func NewCardApprovalClient(cfg CardApprovalConfig) *CardApprovalClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	minCalls := cfg.MinCalls
	if minCalls == 0 {
		minCalls = 1
	}
	rate := cfg.FailureRate

	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.HalfOpenCalls,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenWait,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < minCalls {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests)*100 >= rate
		},
		IsSuccessful: func(err error) bool {
			var ce *clientError
			return err == nil || errors.As(err, &ce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			utils.LogEvent("", "gateway", "breaker_state", fmt.Sprintf("name=%s from=%s to=%s", name, from, to))
		},
	}

	return &CardApprovalClient{
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.BasePath, "/") + "/payment-status",
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker:   gobreaker.NewCircuitBreaker[bool](settings),
		attempts:  cfg.RetryAttempts,
		retryWait: cfg.RetryWait,
	}
}

// Approve reports whether paymentReference is approved. A 4xx answer
// becomes domain.PaymentRejectedError; an open breaker or exhausted
// retries become domain.ServiceUnavailableError.
func (c *CardApprovalClient) Approve(ctx context.Context, paymentReference string) (bool, error) {
	var approved bool
	op := func() error {
		ok, err := c.breaker.Execute(func() (bool, error) {
			return c.call(ctx, paymentReference)
		})
		if err == nil {
			approved = ok
			return nil
		}
		var ce *clientError
		if errors.As(err, &ce) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		utils.LogError(utils.RequestIDFrom(ctx), "gateway", "card_approval_retry", "transient card service failure", err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), c.attempts-1), ctx)
	err := backoff.Retry(op, policy)
	if err == nil {
		return approved, nil
	}

	var ce *clientError
	if errors.As(err, &ce) {
		return false, domain.PaymentRejectedError{Reference: paymentReference, Msg: "card payment refused", Err: err}
	}
	return false, domain.ServiceUnavailableError{Service: "card approval service", Err: err}
}

// State exposes the breaker state for health reporting.
func (c *CardApprovalClient) State() string {
	return c.breaker.State().String()
}

func (c *CardApprovalClient) call(ctx context.Context, paymentReference string) (bool, error) {
	body, err := json.Marshal(paymentStatusRequest{PaymentReference: paymentReference})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid := utils.RequestIDFrom(ctx); rid != "" {
		req.Header.Set("X-Correlation-ID", rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, &serverError{Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, &clientError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out paymentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("decode card service response: %w", err)
	}
	return strings.EqualFold(out.Status, statusApproved), nil
}
