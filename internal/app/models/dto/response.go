package dto

// MessageResponse represents a plain success message
type MessageResponse struct {
	Message string `json:"message" example:"Logout successful"`
}

// PingResponse is returned by the liveness endpoint
type PingResponse struct {
	Status string `json:"status" example:"ok"`
}

// timeFormat is used for every timestamp in responses
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"
