// internal/core/domain/confidence.go
package domain

// Confidence levels for discovered events.
// Represents how certain a module is that an event is currently valid/active.
const (
	// ConfidenceLow indicates historical or unverified data.
	// Used for: names that no longer resolve, archived records
	ConfidenceLow = 30

	// ConfidenceMedium indicates passive discovery without direct verification.
	// Used for: certificate transparency entries, registration data
	ConfidenceMedium = 60

	// ConfidenceHigh indicates discovery with indirect verification.
	// Used for: registrar data from RDAP, derived registrable domains
	ConfidenceHigh = 80

	// ConfidenceVerified indicates direct verification of liveness/validity.
	// Used for: names and addresses confirmed through DNS resolution
	ConfidenceVerified = 100
)

// ConfidenceLabel returns a human-readable label for a confidence value.
func ConfidenceLabel(confidence int) string {
	switch {
	case confidence >= ConfidenceVerified:
		return "verified"
	case confidence >= ConfidenceHigh:
		return "high"
	case confidence >= ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}
