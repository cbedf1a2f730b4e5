package tier

import (
	"fmt"
	"strings"

	"TicketBlitz_Recommendation/backend/go/internal/models"
)

// Subjects of the three message shapes.
const (
	SubjectAI       = "You might also like these events!"
	SubjectTrending = "Trending Events You Might Like!"
	SubjectStatic   = "Thanks for your booking!"
)

const dateFallback = "TBA"

// WrapAIText puts the model text between the greeting and the signature.
func WrapAIText(username, text, brand string) string {
	return fmt.Sprintf("Hi %s,\n\n%s\n\nHappy exploring!\n\nThe %s Team", username, text, brand)
}

// TrendingBody lists events as "• title - location on date".
func TrendingBody(username, bookedTitle string, events []models.EventSummary, brand string) string {
	bullets := make([]string, 0, len(events))
	for _, e := range events {
		bullets = append(bullets, fmt.Sprintf("• %s - %s on %s", e.Title, e.Location, e.Date.Display(dateFallback)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\n", username)
	fmt.Fprintf(&sb, "Thank you for booking %s!\n\n", bookedTitle)
	sb.WriteString("While our AI recommendation system is currently experiencing high demand, ")
	sb.WriteString("we wanted to share some trending events you might enjoy:\n\n")
	sb.WriteString(strings.Join(bullets, "\n"))
	sb.WriteString("\n\nThese are popular events from our platform that match your interests!\n\n")
	fmt.Fprintf(&sb, "Happy exploring!\n\nThe %s Team", brand)
	return sb.String()
}

// StaticBody thanks the user for the booked event.
func StaticBody(username, bookedTitle, brand string) string {
	return fmt.Sprintf("Hi %s,\n\nThank you for booking %s! We hope you enjoy the event.\n\nHappy exploring!\n\nThe %s Team",
		username, bookedTitle, brand)
}

// AIPrompt builds the single-turn prompt for the AI tier.
func AIPrompt(username string, booked models.EventSummary, similar []models.SimilarEvent, brand string) string {
	var list string
	if len(similar) == 0 {
		list = fmt.Sprintf("Check out our latest events on %s!", brand)
	} else {
		lines := make([]string, 0, len(similar))
		for _, e := range similar {
			lines = append(lines, fmt.Sprintf("- %s (%s) at %s on %s - $%s",
				e.Title, e.Category, e.Location, e.Date.Display(dateFallback), e.Price))
		}
		list = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(`You are an enthusiastic event recommendation assistant for %[1]s.

The user %[2]s just booked "%[3]s" (%[4]s).

Based on their interest, recommend these similar upcoming events:
%[5]s

Write a friendly, personalized email body (3-4 sentences) that:
1. Congratulates them on their booking
2. Explains why these events match their taste
3. Encourages them to explore these options

Do NOT include:
- Subject line
- Greeting (we'll add "Hi %[2]s")
- Signature (we'll add the %[1]s team signature)

Just write the main email content.`, brand, username, booked.Title, booked.Category, list)
}
