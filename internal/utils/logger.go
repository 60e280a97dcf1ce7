package utils

import (
	"log"
	"strings"
)

// LogEvent prints standardized log line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}

// LogFault marks invariant violations (bugs, not bad input) so they can be
// grepped apart from request noise.
func LogFault(requestID, module, message string) {
	req := strings.TrimSpace(requestID)
	log.Printf("[%s] FAULT request_id=%s msg=%s", strings.ToUpper(module), req, message)
}
