package cmd

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// eventCreated mirrors the event-created wire format.
type eventCreated struct {
	ID          int64    `json:"id" validate:"gt=0"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Location    string   `json:"location"`
	Price       string   `json:"price"`
	Date        string   `json:"date,omitempty"`
	ImageURLs   []string `json:"imageUrls"`
}

// recommendationRequest mirrors the recommendation-request wire format.
type recommendationRequest struct {
	UserID    int64  `json:"userId" validate:"gt=0"`
	EventID   int64  `json:"eventId" validate:"gt=0"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
}

// emailDispatch mirrors the email-dispatch wire format.
type emailDispatch struct {
	RecipientEmail string `json:"recipientEmail"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// normalizeDate accepts the same ISO-8601 shapes the service does and returns RFC3339 in UTC.
func normalizeDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}
