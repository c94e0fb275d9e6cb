package payment

import (
	"encoding/json"
	"fmt"
)

type webhookOrder struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
}

type webhookPayload struct {
	Order webhookOrder `json:"order"`
	Data  struct {
		Order webhookOrder `json:"order"`
	} `json:"data"`
}

// ParseWebhook extracts the merchant order reference from a webhook body.
// Any status in the body is ignored.
func ParseWebhook(body []byte) (string, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("invalid webhook body: %w", err)
	}

	ref := payload.Data.Order.OrderID
	if ref == "" {
		ref = payload.Order.OrderID
	}
	if ref == "" {
		return "", fmt.Errorf("webhook body has no order_id")
	}
	return ref, nil
}
