package types

// Event is the canonical payload emitted by a state transition: a dotted type
// tag plus a flat string attribute map, so transports can relay it without
// knowing the schema of each event.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attribute returns the named payload value and whether it is present.
func (e *Event) Attribute(key string) (string, bool) {
	if e == nil || e.Attributes == nil {
		return "", false
	}
	value, ok := e.Attributes[key]
	return value, ok
}

// CloneAttributes returns a detached copy of the payload map. Subscribers may
// mutate the copy without corrupting the emitted event.
func (e *Event) CloneAttributes() map[string]string {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return attrs
}
