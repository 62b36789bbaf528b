package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

// Gateway methods. The gateway owns call encoding and signature checks.
const (
	MethodSubmit       = "gateway_submit"
	MethodCurrentBlock = "gateway_currentBlock"
	MethodEventsAt     = "gateway_eventsAt"
	MethodNextIndex    = "system_accountNextIndex"
	MethodMeterPayment = "gateway_meterPayment"
)

const maxResponseBytes = 8 << 20

// Client talks JSON-RPC 2.0 over HTTP to a chain gateway.
type Client struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Uint64
	backoff    func() retry.Backoff
}

// New returns a client for url. timeout bounds each HTTP round trip.
func New(url string, timeout time.Duration) *Client {
	return NewWithHTTPClient(url, observability.NewHTTPClient(timeout))
}

func NewWithHTTPClient(url string, client *http.Client) *Client {
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: client,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is an error object returned by the gateway.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) Submit(ctx context.Context, call domain.SignedCall) (string, error) {
	var hash string
	if err := c.call(ctx, MethodSubmit, &hash, call); err != nil {
		return "", err
	}
	if strings.TrimSpace(hash) == "" {
		return "", fmt.Errorf("%w: gateway returned an empty transaction hash", domain.ErrChainUnavailable)
	}
	return hash, nil
}

func (c *Client) CurrentBlock(ctx context.Context) (domain.BlockRef, error) {
	var head domain.BlockRef
	err := c.read(ctx, MethodCurrentBlock, &head)
	return head, err
}

func (c *Client) EventsAt(ctx context.Context, blockNumber uint64) ([]domain.ChainEvent, error) {
	var events []domain.ChainEvent
	err := c.read(ctx, MethodEventsAt, &events, blockNumber)
	return events, err
}

func (c *Client) SequenceBaseFor(ctx context.Context, account string) (uint64, error) {
	var next uint64
	err := c.read(ctx, MethodNextIndex, &next, account)
	return next, err
}

func (c *Client) MeterPayment(ctx context.Context, call domain.Call, payer string) (domain.SignedCall, error) {
	var signed domain.SignedCall
	if err := c.call(ctx, MethodMeterPayment, &signed, call, payer); err != nil {
		return domain.SignedCall{}, err
	}
	return signed, nil
}

// read retries idempotent calls while the gateway is unreachable.
func (c *Client) read(ctx context.Context, method string, out any, params ...any) error {
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		err := c.call(ctx, method, out, params...)
		if errors.Is(err, domain.ErrChainUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) call(ctx context.Context, method string, out any, params ...any) (err error) {
	ctx, span := observability.StartClientSpan(ctx, "chain", method)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}()

	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrMalformedCall, method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", domain.ErrChainUnavailable, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrChainUnavailable, method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", domain.ErrChainUnavailable, method, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s: gateway status %d", domain.ErrChainUnavailable, method, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("%w: decode %s response (status %d): %v", domain.ErrChainUnavailable, method, resp.StatusCode, err)
	}
	if decoded.Error != nil {
		return classify(method, decoded.Error)
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s result: %v", domain.ErrChainUnavailable, method, err)
	}
	return nil
}

// classify maps a gateway error onto the pipeline's error kinds. Nonce
// collisions surface as low priority or outdated transactions.
func classify(method string, rpcErr *RPCError) error {
	text := strings.ToLower(rpcErr.Message + " " + string(rpcErr.Data))
	switch {
	case strings.Contains(text, "priority is too low"),
		strings.Contains(text, "priority too low"),
		strings.Contains(text, "outdated"),
		strings.Contains(text, "stale"):
		return fmt.Errorf("%w: %s: %v", domain.ErrSequenceConflict, method, rpcErr)
	case strings.Contains(text, "inability to pay"),
		strings.Contains(text, "insufficient capacity"),
		strings.Contains(text, "payment"):
		return fmt.Errorf("%w: %s: %v", domain.ErrInsufficientBudget, method, rpcErr)
	case rpcErr.Code == -32601, rpcErr.Code == -32603:
		return fmt.Errorf("%w: %s: %v", domain.ErrChainUnavailable, method, rpcErr)
	default:
		return fmt.Errorf("%w: %s: %v", domain.ErrRejected, method, rpcErr)
	}
}

var _ ports.ChainClient = (*Client)(nil)
