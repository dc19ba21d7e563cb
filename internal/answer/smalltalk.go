package answer

import "strings"

// smallTalkReplies maps normalized greetings, thanks, and farewells to
// canned replies. Matched before retrieval so pleasantries never hit the
// chunk store.
var smallTalkReplies = map[string]string{
	"hello":          "Hi there! I'm your company policy assistant. How can I help you today?",
	"hi":             "Hey! Ready to help with any company policy questions you have.",
	"hey":            "Hi! What policy question can I help you with?",
	"hi there":       "Hello! How can I help you with company policies today?",
	"hey there":      "Hi! Ready to help with any policy questions.",
	"hello there":    "Hi! What can I help you with today?",
	"good morning":   "Good morning! How can I help you with company policies today?",
	"good afternoon": "Good afternoon! What policy question can I help you with?",
	"thanks":         "You're very welcome! I'm here to help with any company policy questions you might have.",
	"thank you":      "You're welcome! Feel free to ask if you need anything else about our policies.",
	"ok":             "Got it! Anything else on your mind?",
	"okay":           "Perfect! Let me know if you have any other questions.",
	"got it":         "Excellent! I'm here whenever you need help with company policies.",
	"great":          "Fantastic! What's next?",
	"cool":           "What else can I help you with today?",
	"nice":           "Thanks! Any other questions?",
	"makes sense":    "Great! I'm glad that was helpful. Is there anything else you'd like to know?",
	"bye":            "Goodbye! Have a great day, and don't hesitate to reach out if you need help with policies later.",
	"goodbye":        "Take care! Feel free to come back anytime for policy help.",
	"see you":        "See you later! I'll be here when you need policy assistance.",
}

// smallTalkReply matches the message against the canned table after
// trimming whitespace and trailing punctuation.
func smallTalkReply(message string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!?.")
	normalized = strings.TrimSpace(normalized)

	reply, ok := smallTalkReplies[normalized]
	return reply, ok
}

// IsSmallTalk reports whether a message would take the small-talk path,
// letting callers skip retrieval for it.
func IsSmallTalk(message string) bool {
	_, ok := smallTalkReply(message)
	return ok
}
