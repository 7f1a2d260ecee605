package audit

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Reserved metadata keys. Every other key lives in [Metadata.Extra].
const (
	KeyTags      = "tags"
	KeySensitive = "sensitive"
	KeyDiff      = "diff"
)

// TagSuspicious marks an entry as suspicious for aggregation.
const TagSuspicious = "suspicious"

// Metadata is the entry's key-value document. Reserved keys are typed fields;
// domain-specific keys go in Extra. On the wire all keys share one flat JSON object.
type Metadata struct {
	// Tags is nil when the key is absent. A present but empty list is an explicit
	// "no tags" and disables the suspicious fallback heuristic.
	Tags []string
	// Sensitive holds values that the restricted tier must never see.
	Sensitive any
	// Diff holds a before/after payload of the change.
	Diff  any
	Extra map[string]any
}

// HasTags reports whether the tags key is present.
func (m Metadata) HasTags() bool {
	return m.Tags != nil
}

// HasTag reports whether tag is present, case-insensitively.
func (m Metadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// With returns a copy of m with key set in Extra. Reserved keys are routed to
// their typed fields.
func (m Metadata) With(key string, value any) Metadata {
	out := m.Clone()
	switch key {
	case KeyTags:
		out.Tags = toStrings(value)
	case KeySensitive:
		out.Sensitive = value
	case KeyDiff:
		out.Diff = value
	default:
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[key] = value
	}
	return out
}

// IsZero reports whether m carries no keys at all.
func (m Metadata) IsZero() bool {
	return m.Tags == nil && m.Sensitive == nil && m.Diff == nil && len(m.Extra) == 0
}

// Clone returns a deep copy. Maps and slices nested in Sensitive, Diff and Extra
// are copied; values of other composite types are copied through their JSON form.
func (m Metadata) Clone() Metadata {
	out := Metadata{Sensitive: deepCopy(m.Sensitive), Diff: deepCopy(m.Diff)}
	if m.Tags != nil {
		out.Tags = append([]string{}, m.Tags...)
	}
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = deepCopy(v)
		}
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = deepCopy(inner)
		}
		return out
	case []string:
		return append([]string{}, t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, inner := range t {
			out[k] = inner
		}
		return out
	case time.Time, json.Number:
		return t
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v
	}

	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func (m Metadata) flatten() map[string]any {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		if isReserved(k) {
			continue
		}
		out[k] = v
	}
	if m.Tags != nil {
		out[KeyTags] = m.Tags
	}
	if m.Sensitive != nil {
		out[KeySensitive] = m.Sensitive
	}
	if m.Diff != nil {
		out[KeyDiff] = m.Diff
	}
	return out
}

// MarshalJSON writes all keys as one flat object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.flatten())
}

// UnmarshalJSON splits a flat object into reserved fields and Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("audit metadata: %w", err)
	}

	*m = Metadata{}
	for k, v := range raw {
		*m = m.With(k, v)
	}
	return nil
}

func isReserved(key string) bool {
	return key == KeyTags || key == KeySensitive || key == KeyDiff
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return []string{}
	}
}
