package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"muralhub/internal/platform/config"
)

const EventClaimBlocked = "claim.blocked"

type Event struct {
	ID        string      `json:"id"`
	Event     string      `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ClaimBlocked is the payload sent to support when a signup could not be
// verified automatically.
type ClaimBlocked struct {
	OrganizationSlug string `json:"organization_slug"`
	OrganizationID   string `json:"organization_id,omitempty"`
	Email            string `json:"email"`
	FullName         string `json:"full_name,omitempty"`
	Reason           string `json:"reason"`
}

// Dispatcher posts signed events to the support webhook. A zero URL
// disables delivery.
type Dispatcher struct {
	url    string
	secret string
	client *http.Client
}

func NewDispatcher(cfg config.SupportConfig) *Dispatcher {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		url:    cfg.WebhookURL,
		secret: cfg.WebhookSecret,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *Dispatcher) Enabled() bool {
	return d != nil && d.url != ""
}

// NotifyClaimBlocked delivers in the background; the request that triggered
// it does not wait for support.
func (d *Dispatcher) NotifyClaimBlocked(payload ClaimBlocked) {
	if !d.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.client.Timeout)
		defer cancel()
		if err := d.Send(ctx, EventClaimBlocked, payload); err != nil {
			log.Error().Err(err).Str("slug", payload.OrganizationSlug).Msg("failed to notify support")
		}
	}()
}

func (d *Dispatcher) Send(ctx context.Context, eventType string, data interface{}) error {
	event := &Event{
		ID:        "evt_" + uuid.NewString(),
		Event:     eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(d.secret, payload))
	req.Header.Set("X-Muralhub-Event", event.Event)
	req.Header.Set("X-Muralhub-Delivery", event.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("support webhook returned HTTP %d", resp.StatusCode)
	}

	log.Debug().Str("event", eventType).Str("delivery", event.ID).Msg("support notified")
	return nil
}
