package retry

import (
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// Client retries an operation a bounded number of times. An error is
// retried only when it matches a registered retriable error and the
// caller-supplied predicate agrees, so failure classes the caller treats
// as fatal are never masked by retries.
type Client struct {
	maxRetries      int
	retryInterval   time.Duration
	retriableErrors []string
}

// NewRetryClient returns a retry client that runs an operation at most
// 1+maxRetries times, sleeping retryInterval between attempts.
func NewRetryClient(maxRetries int, retryInterval time.Duration) *Client {
	return &Client{
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
	}
}

// RegisterRetriableErrors registers error message fragments that mark an
// error as retriable.
func (c *Client) RegisterRetriableErrors(errs ...string) {
	c.retriableErrors = append(c.retriableErrors, errs...)
}

// Do runs f, retrying while the returned error is retriable according to
// both the registered fragments and shouldRetry.
func (c *Client) Do(f func() error, shouldRetry func(error) bool) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			klog.V(4).Infof("retrying after error (attempt %d of %d): %v", attempt, c.maxRetries, err)
			time.Sleep(c.retryInterval)
		}
		err = f()
		if err == nil {
			return nil
		}
		if !c.isRetriable(err) || !shouldRetry(err) {
			return err
		}
	}
	return err
}

func (c *Client) isRetriable(err error) bool {
	for _, e := range c.retriableErrors {
		if strings.Contains(err.Error(), e) {
			return true
		}
	}
	return false
}
