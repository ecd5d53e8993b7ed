package activity

// AbsentOrNull reports whether element is missing from r or holds a falsy value.
func AbsentOrNull(element string, r Record) bool {
	if len(r) == 0 {
		return true
	}
	v, ok := r[element]
	if !ok {
		return true
	}
	return !Truthy(v)
}

// Present is the negation of AbsentOrNull.
func Present(element string, r Record) bool {
	return !AbsentOrNull(element, r)
}

// Resolve returns detail[container][field] when both the container and the
// field are present and truthy, otherwise summary[field] when that is truthy,
// otherwise nil. Zero values are treated exactly like missing ones.
func Resolve(field string, summary, detail Record, container string) any {
	if AbsentOrNull(container, detail) || AbsentOrNull(field, detail.Sub(container)) {
		if AbsentOrNull(field, summary) {
			return nil
		}
		return summary[field]
	}
	return detail.Sub(container)[field]
}
