package widget

// CompanionSuffix is appended to a widget id to name its hidden companion.
const CompanionSuffix = "__internal"

// CompanionID returns the hidden companion id for widget id.
//
// A companion exists exactly when a default query source is present, even if
// a custom query source is present too; the custom query then only suppresses
// the companion's query pushes. The answer is computed once, at
// construction; later prop changes never create, rename or remove it.
func CompanionID(id string, hasDefault bool) (string, bool) {
	if !hasDefault {
		return "", false
	}
	return id + CompanionSuffix, true
}
