package llm

// config.go extracts typed values from the generic option maps passed to
// Complete.

// ExtractOptionalInt returns opts[key] as an int, or defaultVal when the key
// is missing, of another type, or rejected by validator.
// YAML and JSON decoders produce float64 for numbers, so whole floats are
// accepted too.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}

	var intVal int
	switch v := val.(type) {
	case int:
		intVal = v
	case float64:
		if v != float64(int(v)) {
			return defaultVal
		}
		intVal = int(v)
	default:
		return defaultVal
	}

	if validator != nil && !validator(intVal) {
		return defaultVal
	}
	return intVal
}

// ExtractOptionalString returns opts[key] as a string, or defaultVal when
// the key is missing, of another type, or rejected by validator.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	strVal, ok := opts[key].(string)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(strVal) {
		return defaultVal
	}
	return strVal
}

// ExtractOptionalFloat64 returns opts[key] as a float64, or defaultVal when
// the key is missing, of another type, or rejected by validator.
func ExtractOptionalFloat64(opts map[string]any, key string, defaultVal float64, validator func(float64) bool) float64 {
	floatVal, ok := opts[key].(float64)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(floatVal) {
		return defaultVal
	}
	return floatVal
}
