package internal

import "strconv"

// FlattenPayload converts a decoded JSON object into a single-level map
// whose keys are dot paths, so "repository.full_name" addresses a nested
// field. Array elements get an indexed path ("commits[0].id") and the array
// itself stays addressable at its own path.
func FlattenPayload(data map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	for key, value := range data {
		flattenValue(flat, key, value)
	}
	return flat
}

func flattenValue(flat map[string]interface{}, path string, value interface{}) {
	switch typed := value.(type) {
	case map[string]interface{}:
		for key, child := range typed {
			flattenValue(flat, path+"."+key, child)
		}
	case []interface{}:
		flat[path] = typed
		for i, child := range typed {
			flattenValue(flat, path+"["+strconv.Itoa(i)+"]", child)
		}
	default:
		flat[path] = value
	}
}
