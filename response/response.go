package response

// AcceptedResponse acknowledges a submitted payload. Data carries what was derived from it.
type AcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
}

func NewAcceptedResponse(accepted bool, message string, data any) AcceptedResponse {
	return AcceptedResponse{
		Accepted: accepted,
		Message:  message,
		Data:     data,
	}
}
