package shared

import "encoding/json"

type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	CreatedAt string  `json:"created_at"`
}

// CreateItemRequest uses pointers so an absent or null field can be told
// apart from a zero value.
type CreateItemRequest struct {
	Name     *string      `json:"name"`
	Quantity *json.Number `json:"quantity"`
	Price    *float64     `json:"price"`
}

type CreateItemResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every 4xx/5xx reply. Message encodes as
// null when there is no detail.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Message *string `json:"message"`
}
