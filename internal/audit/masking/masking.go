package masking

import "strings"

const maskToken = "****"

// sensitiveKeys lists detail keys that carry personal data.
var sensitiveKeys = map[string]struct{}{
	"rut":           {},
	"client_rut":    {},
	"clientrut":     {},
	"email":         {},
	"client_email":  {},
	"clientemail":   {},
	"phone":         {},
	"address":       {},
	"clientaddress": {},
	"notes":         {},
	"diagnosis":     {},
}

// MaskSecret keeps the last four characters of a value.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskDetails returns a copy of details with sensitive string values masked.
// Nested maps are walked; other values are copied as is.
func MaskDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}

	masked := make(map[string]any, len(details))
	for key, value := range details {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		switch cast := value.(type) {
		case map[string]any:
			masked[trimmed] = MaskDetails(cast)
		case string:
			if isSensitive(trimmed) {
				masked[trimmed] = MaskSecret(cast)
			} else {
				masked[trimmed] = cast
			}
		default:
			masked[trimmed] = value
		}
	}
	return masked
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}
