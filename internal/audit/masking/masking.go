package masking

import "strings"

const maskToken = "****"

// SensitiveKeys are metadata keys whose string values never reach the audit log
// in clear.
var SensitiveKeys = []string{"identity_document", "phone", "mobile"}

// MaskValue redacts a personal identifier, keeping a short suffix so staff can
// still tell entries apart.
func MaskValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-3:]
}

// MaskFields returns a copy of input with the listed keys masked. Nested maps
// are masked with the same keys.
func MaskFields(input map[string]any, keys ...string) map[string]any {
	if len(input) == 0 {
		return nil
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[k] = struct{}{}
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[trimmedKey]; ok {
			if s, isString := value.(string); isString {
				masked[trimmedKey] = MaskValue(s)
				continue
			}
		}
		if nested, ok := value.(map[string]any); ok {
			masked[trimmedKey] = MaskFields(nested, keys...)
			continue
		}
		masked[trimmedKey] = value
	}
	return masked
}
