package domain

import (
	"strings"
	"time"
)

// Webhook topics handled by the dispatcher
const (
	TopicProductsCreate  = "products/create"
	TopicProductsUpdate  = "products/update"
	TopicCustomersCreate = "customers/create"
	TopicCustomersUpdate = "customers/update"
	TopicOrdersCreate    = "orders/create"
	TopicOrdersUpdated   = "orders/updated"
	TopicCheckoutsCreate = "checkouts/create"
	TopicAppUninstalled  = "app/uninstalled"
)

// SubscriptionTopics are registered with the platform on every install
var SubscriptionTopics = []string{
	TopicProductsCreate,
	TopicProductsUpdate,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicOrdersCreate,
	TopicOrdersUpdated,
	TopicCheckoutsCreate,
	TopicAppUninstalled,
}

// WebhookEvent represents a verified push notification
type WebhookEvent struct {
	ID         string    `json:"id,omitempty"`
	WebhookID  string    `json:"webhookId,omitempty"`
	Topic      string    `json:"topic"`
	Shop       string    `json:"shop"`
	TenantID   string    `json:"tenantId"`
	Payload    []byte    `json:"-"`
	Verified   bool      `json:"verified"`
	ReceivedAt time.Time `json:"receivedAt"`
	// TriggeredAt is when the platform raised the event; zero when the header was absent
	TriggeredAt time.Time `json:"triggeredAt,omitempty"`
}

// OccurredAt is the platform trigger time, or the receive time when it is unknown
func (e *WebhookEvent) OccurredAt() time.Time {
	if !e.TriggeredAt.IsZero() {
		return e.TriggeredAt
	}
	return e.ReceivedAt
}

// TopicFamily returns the resource part of a topic ("orders/updated" -> "orders")
func TopicFamily(topic string) string {
	if i := strings.IndexByte(topic, '/'); i > 0 {
		return topic[:i]
	}
	if topic == "" {
		return "none"
	}
	return topic
}
