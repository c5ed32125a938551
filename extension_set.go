package aurora

// extensionSet splits requested names into what the platform actually offers
// and what is missing. Required names are always enabled so that creation
// fails loudly; wanted names are enabled only when available.
type extensionSet struct {
	required []string
	wanted   []string
	actual   []string
}

func newExtensionSet(actual, required, wanted []string) *extensionSet {
	return &extensionSet{required: required, wanted: wanted, actual: actual}
}

func (e *extensionSet) has(name string) bool {
	for _, act := range e.actual {
		if trimNull(act) == trimNull(name) {
			return true
		}
	}
	return false
}

// Missing returns required names the platform does not report.
func (e *extensionSet) Missing() []string {
	var missing []string
	for _, req := range e.required {
		if !e.has(req) {
			missing = append(missing, req)
		}
	}
	return missing
}

// MissingWanted returns optional names that will be skipped.
func (e *extensionSet) MissingWanted() []string {
	var missing []string
	for _, want := range e.wanted {
		if !e.has(want) {
			missing = append(missing, want)
		}
	}
	return missing
}

// Enabled is the null-terminated list to hand to vulkan: all required names
// followed by available wanted names, without duplicates.
func (e *extensionSet) Enabled() []string {
	seen := make(map[string]bool, len(e.required)+len(e.wanted))
	var out []string
	for _, req := range e.required {
		if !seen[trimNull(req)] {
			seen[trimNull(req)] = true
			out = append(out, safeString(req))
		}
	}
	for _, want := range e.wanted {
		if !seen[trimNull(want)] && e.has(want) {
			seen[trimNull(want)] = true
			out = append(out, safeString(want))
		}
	}
	return out
}

func trimNull(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\x00' {
		return s[:len(s)-1]
	}
	return s
}
