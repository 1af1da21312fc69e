package entity

import (
	"bytes"
	"encoding/json"
	"time"

	"shopify-ingestion-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoWebhookDoc is one entry of the webhook event log
type MongoWebhookDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	WebhookID  string             `bson:"webhookId,omitempty"`
	Topic      string             `bson:"topic"`
	Shop       string             `bson:"shop"`
	TenantID   string             `bson:"tenantId"`
	Payload    map[string]any     `bson:"payload,omitempty"`
	RawPayload string             `bson:"rawPayload,omitempty"`
	Verified   bool               `bson:"verified"`
	ReceivedAt time.Time          `bson:"receivedAt"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// MongoWebhookDocFromDomain converts a webhook event to a MongoDB document.
// Bodies that are not a JSON object are kept as text.
func MongoWebhookDocFromDomain(event *domain.WebhookEvent) *MongoWebhookDoc {
	doc := &MongoWebhookDoc{
		WebhookID:  event.WebhookID,
		Topic:      event.Topic,
		Shop:       event.Shop,
		TenantID:   event.TenantID,
		Verified:   event.Verified,
		ReceivedAt: event.ReceivedAt,
	}

	dec := json.NewDecoder(bytes.NewReader(event.Payload))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err == nil && payload != nil {
		doc.Payload = payload
	} else {
		doc.RawPayload = string(event.Payload)
	}

	if event.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(event.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
