package records

// Canonical field resolution for rows whose labels vary by language.
// Each logical field is resolved through an ordered list of candidate keys;
// the first key present with a non-empty string value wins.

var (
	eventNameKeys     = []string{"Nome do Evento", "Event Name", "Name"}
	eventWebsiteKeys  = []string{"Site do Evento", "Event Website"}
	eventLocationKeys = []string{"Localização", "Location"}
	eventCategoryKeys = []string{"Category", "Categoria"}
)

// fieldString resolves a logical field from a raw row by trying candidate
// keys in order. Non-string values and empty strings are skipped.
func fieldString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			if s, isStr := v.(string); isStr && s != "" {
				return s
			}
		}
	}
	return ""
}
