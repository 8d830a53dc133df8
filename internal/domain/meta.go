package domain

// Meta is an open key/value map external domain wrappers (HR, LMS, ERP and
// the like) use to annotate tasks. The core stores and returns it unchanged
// and never interprets its contents. Keys are namespaced by prefix by
// convention only; uniqueness across wrappers is not enforced.
type Meta map[string]any

// Clone returns a shallow copy so callers cannot mutate stored state through
// a returned task.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
