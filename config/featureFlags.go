package config

import (
	"os"
	"strings"
)

// AiFallbackForced disables the Ollama reviewer and always uses the
// deterministic heuristic review.
//
// Set via env:
// - PARADIXE_AI_FALLBACK=true
func AiFallbackForced() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("PARADIXE_AI_FALLBACK")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// NotificationEventsEnabled gates the Pub/Sub publish on approval
// transitions. Delivery is handled by a separate worker.
//
// Set via env:
// - NOTIFICATION_EVENTS=true
func NotificationEventsEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFICATION_EVENTS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
