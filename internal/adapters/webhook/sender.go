package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	cebinding "github.com/cloudevents/sdk-go/v2/binding"
	ceevent "github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
	"github.com/fr0stylo/txcommit/internal/observability"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the body under the registration secret.
	SignatureHeader = "X-Webhook-Signature"
	// DeliveryHeader repeats the delivery id so receivers can drop repeats.
	DeliveryHeader = "X-Webhook-Delivery"
	eventTypePrefix = "io.txcommit."
	defaultSource   = "txcommit"
)

// Sender posts outcomes as binary-mode CloudEvents.
type Sender struct {
	client *http.Client
	source string
	clock  clock.Clock
}

type Option func(*Sender)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

func WithSource(source string) Option {
	return func(s *Sender) {
		if v := strings.TrimSpace(source); v != "" {
			s.source = v
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Sender) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSender returns a sender whose requests time out after timeout.
func NewSender(timeout time.Duration, opts ...Option) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Sender{client: observability.NewHTTPClient(timeout), source: defaultSource, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers one outcome and returns the response status. Any status
// outside 2xx is reported as an error wrapping domain.ErrDeliveryFailed.
func (s *Sender) Send(ctx context.Context, registration domain.WebhookRegistration, deliveryID string, outcome domain.TxOutcome) (int, error) {
	endpoint := strings.TrimSpace(registration.URL)
	if endpoint == "" {
		return 0, fmt.Errorf("%w: registration %d has no url", domain.ErrDeliveryFailed, registration.ID)
	}
	body, err := json.Marshal(outcome)
	if err != nil {
		return 0, fmt.Errorf("encode outcome %s: %w", outcome.Key(), err)
	}

	event := ceevent.New()
	event.SetID(deliveryID)
	event.SetSource(s.source)
	event.SetType(eventTypePrefix + outcome.EventType())
	event.SetSubject(outcome.Common().ReferenceID)
	event.SetTime(s.clock.Now().UTC())
	if hash := outcome.Common().TxHash; hash != "" {
		event.SetExtension("txhash", hash)
	}
	event.SetExtension("outcomestatus", string(outcome.Status()))
	if err := event.SetData(ceevent.ApplicationJSON, body); err != nil {
		return 0, fmt.Errorf("set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return 0, fmt.Errorf("invalid delivery event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %v", domain.ErrDeliveryFailed, err)
	}
	if err := cehttp.WriteRequest(ctx, cebinding.ToMessage(&event), req); err != nil {
		return 0, fmt.Errorf("write event request: %w", err)
	}
	if token := strings.TrimSpace(registration.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if secret := strings.TrimSpace(registration.Secret); secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, secret))
	}
	req.Header.Set(DeliveryHeader, deliveryID)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: send request: %v", domain.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("%w: status=%s body=%s", domain.ErrDeliveryFailed, resp.Status, strings.TrimSpace(string(payload)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign.
func Verify(body []byte, secret, signature string) bool {
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

var _ ports.CallbackSender = (*Sender)(nil)
