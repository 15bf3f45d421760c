// Package vars implements deep merging of the variable trees declared by
// roles and hosts. Role trees are merged in role order, then host variables
// are layered on top.
package vars

// Merge deep-merges two variable trees. Values in overlay take precedence.
// Nested maps are merged recursively; all other value kinds are replaced
// wholesale. Neither input is mutated.
func Merge(base, overlay map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(base)+len(overlay))
	for key, val := range base {
		result[key] = val
	}

	for key, overlayVal := range overlay {
		baseMap, baseOk := result[key].(map[string]interface{})
		overlayMap, overlayOk := overlayVal.(map[string]interface{})
		if baseOk && overlayOk {
			result[key] = Merge(baseMap, overlayMap)
			continue
		}
		result[key] = overlayVal
	}

	return result
}
