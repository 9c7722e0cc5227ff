package util

import "encoding/json"

// ConvertStructToJson marshals v into a JSON string. Marshalling failures
// collapse to an empty object so queue payload construction never panics.
func ConvertStructToJson(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
