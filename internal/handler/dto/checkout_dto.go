package dto

type CheckoutResponse struct {
	URL string `json:"url"`
}

type WebhookAckResponse struct {
	Received bool `json:"received"`
}
