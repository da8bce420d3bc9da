package dto

// APIErrorResponse is returned by the API-key protected license routes.
type APIErrorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SimpleErrorResponse is the {"error": "..."} body of the public checkout and
// webhook endpoints.
type SimpleErrorResponse struct {
	Error string `json:"error"`
}
