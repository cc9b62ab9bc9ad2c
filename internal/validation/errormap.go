package validation

import "jobprep/internal/types"

// RemoveIndex returns m without key i, with every key above i shifted down by one.
func RemoveIndex(m types.FieldErrorMap, i int) types.FieldErrorMap {
	out := make(types.FieldErrorMap, len(m))
	for k, v := range m {
		switch {
		case k < i:
			out[k] = v
		case k > i:
			out[k-1] = v
		}
	}
	return out
}

// itemFieldOrder is the order errors inside one item are reported in.
var itemFieldOrder = []string{"startDate", "endDate", "date"}

// firstItemError returns the first non-empty message of one item.
func firstItemError(errs map[string]string) string {
	for _, field := range itemFieldOrder {
		if msg := errs[field]; msg != "" {
			return msg
		}
	}
	return ""
}

// HasErrors reports whether any item carries a non-empty message.
func HasErrors(m types.FieldErrorMap) bool {
	for _, errs := range m {
		if firstItemError(errs) != "" {
			return true
		}
	}
	return false
}
