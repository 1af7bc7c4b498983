package workflow

import (
	"fmt"
	"strings"
)

// Heuristic stand-ins for the llm helper namespace exposed to rules. These are
// deterministic keyword checks, not model calls; rules stay executable with no
// credential configured.

var categoryKeywords = map[string][]string{
	"newsletter":   {"newsletter", "digest", "weekly", "unsubscribe", "roundup"},
	"notification": {"notification", "alert", "reminder", "confirm", "receipt", "verify"},
	"promotional":  {"sale", "discount", "offer", "deal", "promo", "% off", "free shipping"},
	"social":       {"mentioned you", "friend request", "followed you", "commented"},
}

// classify buckets an email into a coarse category from its subject and
// sender, defaulting to "personal".
func classify(email EmailRef) string {
	text := strings.ToLower(email.Subject + " " + email.Sender)
	for category, words := range categoryKeywords {
		for _, w := range words {
			if strings.Contains(text, w) {
				return category
			}
		}
	}
	return "personal"
}

// matchPattern reports whether text matches a named category or, failing
// that, contains the pattern literally.
func matchPattern(text, pattern string) bool {
	lower := strings.ToLower(text)
	if words, ok := categoryKeywords[strings.ToLower(pattern)]; ok {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	return strings.Contains(lower, strings.ToLower(pattern))
}

// summarize produces a one-line description of an email.
func summarize(email EmailRef) string {
	subject := email.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return fmt.Sprintf("%q from %s (%s)", subject, email.Sender, classify(email))
}

// decide is a yes/no heuristic over an email for a named question. Unknown
// questions answer false.
func decide(email EmailRef, question string) bool {
	switch strings.ToLower(question) {
	case "is_bulk":
		c := classify(email)
		return c == "newsletter" || c == "promotional"
	case "is_unread":
		return !email.IsRead
	default:
		return false
	}
}

// extract pulls a named field out of the email record.
func extract(email EmailRef, field string) string {
	switch strings.ToLower(field) {
	case "sender":
		return email.Sender
	case "subject":
		return email.Subject
	case "domain":
		if i := strings.LastIndex(email.Sender, "@"); i >= 0 {
			return email.Sender[i+1:]
		}
		return ""
	default:
		return ""
	}
}
