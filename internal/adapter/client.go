// Package adapter delegates individual activity executions to
// out-of-process adapters. The engine only depends on the Invoker
// contract; the HTTP transport below is one implementation of it.
package adapter

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/procflow/procflow/pkg/types"
)

// Invoker executes one delegated activity and returns the adapter's
// reply.
type Invoker interface {
	Invoke(url string, req *types.ExecuteRequest) (*types.ExecuteResponse, error)
}

const defaultTimeout = 30 * time.Second

var (
	// Shared client so all service tasks reuse one connection pool.
	sharedClient     *fasthttp.Client
	sharedClientOnce sync.Once
)

// HTTPInvoker posts ExecuteRequests to adapter endpoints as JSON.
type HTTPInvoker struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewHTTPInvoker creates an invoker with the given request timeout.
func NewHTTPInvoker(timeout time.Duration) *HTTPInvoker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	sharedClientOnce.Do(func() {
		sharedClient = &fasthttp.Client{
			MaxConnsPerHost:     256,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		}
	})
	return &HTTPInvoker{client: sharedClient, timeout: timeout}
}

// Invoke posts the request to the adapter endpoint and decodes its
// reply.
func (c *HTTPInvoker) Invoke(url string, execReq *types.ExecuteRequest) (*types.ExecuteResponse, error) {
	body, err := json.Marshal(execReq)
	if err != nil {
		return nil, fmt.Errorf("cannot encode execute request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("adapter call failed: %w", err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("adapter returned status %d", code)
	}

	var execResp types.ExecuteResponse
	if err := json.Unmarshal(resp.Body(), &execResp); err != nil {
		return nil, fmt.Errorf("cannot decode execute response: %w", err)
	}
	return &execResp, nil
}
