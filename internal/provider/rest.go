package provider

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewRESTClient returns a resty client for a vendor API rooted at baseURL.
func NewRESTClient(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// CheckResponse turns a transport error or a non-2xx status into an error.
func CheckResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), body)
	}
	return nil
}
