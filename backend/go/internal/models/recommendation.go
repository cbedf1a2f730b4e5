package models

// RecommendationRequest 是 "recommendation-request" 主题上的预订触发消息。
type RecommendationRequest struct {
	UserID    int64  `json:"userId" validate:"gt=0"`
	EventID   int64  `json:"eventId" validate:"gt=0"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
}

// RecommendationMessage 是发送到 "email-dispatch" 主题的出站消息。
type RecommendationMessage struct {
	RecipientEmail string `json:"recipientEmail"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}
