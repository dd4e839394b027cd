// Package notifier отправляет уведомления о событиях движка во внешний
// диспетчер. Доставка выполняется по принципу "отправил и забыл": ошибка
// доставки никогда не откатывает вызвавшую её операцию.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Типы событий, отправляемых диспетчеру уведомлений.
const (
	EventSubscriptionActivated = "subscription_activated"
	EventSubscriptionRejected  = "subscription_rejected"
	EventCreditAdded           = "credit_added"
	EventStudentAssigned       = "student_assigned"
	EventAccessExpired         = "access_expired"
)

// Event описывает одно событие движка доступа.
type Event struct {
	Type           string    `json:"type"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	GroupID        string    `json:"group_id,omitempty"`
	StudentID      string    `json:"student_id,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Client инкапсулирует HTTP-взаимодействие с диспетчером уведомлений.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewClient создаёт HTTP-клиент диспетчера уведомлений по указанному адресу.
func NewClient(baseURL string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 1 * time.Second
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: c,
	}
}

// Send отправляет событие диспетчеру уведомлений.
func (c *Client) Send(ctx context.Context, e Event) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("notifier client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
