// entries.go models the service fields that compose allows in two shapes.
//
// `environment` and `labels` may be written either as a list of "KEY=VALUE"
// strings or as a KEY: VALUE mapping, and `ports` as a list of
// "host:container" strings or (rarely) a published: target mapping. Instead
// of type-switching on the decoded YAML at every call site, a field is parsed
// once into an EntryList that remembers which form it came from, edited
// through form-aware accessors, and converted back with Value() in the same
// form it was read in.
package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Form identifies which YAML shape an EntryList was read from.
type Form int

const (
	// SequenceForm is an ordered list of strings, e.g. ["FOO=bar"].
	SequenceForm Form = iota

	// MappingForm is a key/value mapping, e.g. {FOO: bar}.
	MappingForm
)

// String returns the human-readable name of the form.
func (f Form) String() string {
	switch f {
	case SequenceForm:
		return "sequence"
	case MappingForm:
		return "mapping"
	default:
		return fmt.Sprintf("Form(%d)", int(f))
	}
}

// Separators between key and value inside a sequence entry.
const (
	// KeyValueSeparator separates keys from values in environment and labels.
	KeyValueSeparator = "="

	// PortSeparator separates the published port from the target port.
	PortSeparator = ":"
)

// EntryList is an immutable view of a dual-form service field. Every
// editing method returns a new EntryList; the receiver is never modified.
type EntryList struct {
	form Form
	sep  string

	// seq holds the entries in SequenceForm.
	seq []string

	// mapping holds the raw values in MappingForm. Values are kept as
	// decoded so untouched keys (including nulls) survive a round trip.
	mapping map[string]interface{}
}

// NewSequence creates a SequenceForm list from the given items.
func NewSequence(sep string, items ...string) EntryList {
	seq := make([]string, len(items))
	copy(seq, items)
	return EntryList{form: SequenceForm, sep: sep, seq: seq}
}

// NewMapping creates a MappingForm list from the given pairs.
func NewMapping(sep string, pairs map[string]string) EntryList {
	m := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		m[k] = v
	}
	return EntryList{form: MappingForm, sep: sep, mapping: m}
}

// ParseEntryList converts a decoded YAML value into an EntryList.
//
// A nil value (field absent or explicitly null) yields an empty sequence,
// which is the shape the field gets when entries are later added to it.
// Scalar list items that YAML decoded as numbers or booleans are kept in
// their textual form. Any other shape returns a *FieldError.
func ParseEntryList(field, sep string, raw interface{}) (EntryList, error) {
	switch v := raw.(type) {
	case nil:
		return NewSequence(sep), nil

	case []interface{}:
		seq := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := scalarString(item)
			if !ok || item == nil {
				return EntryList{}, &FieldError{
					Field:   fmt.Sprintf("%s[%d]", field, i),
					Message: fmt.Sprintf("expected a string entry, got %T", item),
				}
			}
			seq = append(seq, s)
		}
		return EntryList{form: SequenceForm, sep: sep, seq: seq}, nil

	case []string:
		return NewSequence(sep, v...), nil

	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[k] = val
		}
		return EntryList{form: MappingForm, sep: sep, mapping: m}, nil

	case map[interface{}]interface{}:
		// yaml.v3 decodes mappings with non-string keys (e.g. numeric
		// published ports) into this type.
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			key, ok := scalarString(k)
			if !ok {
				return EntryList{}, &FieldError{
					Field:   field,
					Message: fmt.Sprintf("unsupported mapping key of type %T", k),
				}
			}
			m[key] = val
		}
		return EntryList{form: MappingForm, sep: sep, mapping: m}, nil

	case map[string]string:
		return NewMapping(sep, v), nil

	default:
		return EntryList{}, &FieldError{
			Field:   field,
			Message: fmt.Sprintf("expected a list or a mapping, got %T", raw),
		}
	}
}

// Form reports which representation the list uses.
func (l EntryList) Form() Form {
	return l.form
}

// Len returns the number of entries.
func (l EntryList) Len() int {
	if l.form == MappingForm {
		return len(l.mapping)
	}
	return len(l.seq)
}

// Strings returns the entries as strings. Sequence entries are returned in
// order; mapping entries are rendered as "key<sep>value" sorted by key, or
// just "key" when the value is null.
func (l EntryList) Strings() []string {
	if l.form == SequenceForm {
		out := make([]string, len(l.seq))
		copy(out, l.seq)
		return out
	}

	keys := l.sortedKeys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.render(k))
	}
	return out
}

// Contains reports whether an entry renders exactly as item.
func (l EntryList) Contains(item string) bool {
	for _, s := range l.Strings() {
		if s == item {
			return true
		}
	}
	return false
}

// Lookup returns the value stored under key. In sequence form the first
// entry whose key matches wins.
func (l EntryList) Lookup(key string) (string, bool) {
	if l.form == MappingForm {
		raw, ok := l.mapping[key]
		if !ok {
			return "", false
		}
		if raw == nil {
			return "", true
		}
		s, _ := scalarString(raw)
		return s, true
	}

	for _, item := range l.seq {
		k, v, _ := strings.Cut(item, l.sep)
		if k == key {
			return v, true
		}
	}
	return "", false
}

// LookupRaw returns the undecoded value stored under key. For sequence form
// the value is always a string.
func (l EntryList) LookupRaw(key string) (interface{}, bool) {
	if l.form == MappingForm {
		raw, ok := l.mapping[key]
		return raw, ok
	}
	v, ok := l.Lookup(key)
	if !ok {
		return nil, false
	}
	return v, true
}

// Set stores key=value. In sequence form every entry starting with
// "key<sep>" is dropped and the new entry is appended at the end; in
// mapping form the key is overwritten in place.
func (l EntryList) Set(key, value string) EntryList {
	if l.form == MappingForm {
		out := l.cloneMapping()
		out.mapping[key] = value
		return out
	}

	out := l.Delete(key)
	out.seq = append(out.seq, key+l.sep+value)
	return out
}

// Delete removes key. In sequence form this drops every entry with the
// prefix "key<sep>". Deleting an absent key returns an equal list.
func (l EntryList) Delete(key string) EntryList {
	if l.form == MappingForm {
		out := l.cloneMapping()
		delete(out.mapping, key)
		return out
	}

	prefix := key + l.sep
	seq := make([]string, 0, len(l.seq))
	for _, item := range l.seq {
		if strings.HasPrefix(item, prefix) {
			continue
		}
		seq = append(seq, item)
	}
	return EntryList{form: SequenceForm, sep: l.sep, seq: seq}
}

// Without removes every entry whose rendered string is in items, keeping
// the order of the remaining entries.
func (l EntryList) Without(items []string) EntryList {
	drop := make(map[string]struct{}, len(items))
	for _, item := range items {
		drop[item] = struct{}{}
	}

	if l.form == MappingForm {
		out := l.cloneMapping()
		for k := range l.mapping {
			if _, ok := drop[l.render(k)]; ok {
				delete(out.mapping, k)
			}
		}
		return out
	}

	seq := make([]string, 0, len(l.seq))
	for _, item := range l.seq {
		if _, ok := drop[item]; ok {
			continue
		}
		seq = append(seq, item)
	}
	return EntryList{form: SequenceForm, sep: l.sep, seq: seq}
}

// Append adds entries at the end. In mapping form each item is split on
// the first separator into key and value.
func (l EntryList) Append(items ...string) EntryList {
	if l.form == MappingForm {
		out := l.cloneMapping()
		for _, item := range items {
			k, v, found := strings.Cut(item, l.sep)
			if !found {
				out.mapping[k] = nil
				continue
			}
			out.mapping[k] = v
		}
		return out
	}

	seq := make([]string, 0, len(l.seq)+len(items))
	seq = append(seq, l.seq...)
	seq = append(seq, items...)
	return EntryList{form: SequenceForm, sep: l.sep, seq: seq}
}

// Value converts the list back into a YAML-encodable value of the same
// form it was parsed from. An empty sequence is returned as an empty
// (non-nil) slice so it is written as [] rather than null.
func (l EntryList) Value() interface{} {
	if l.form == MappingForm {
		m := make(map[string]interface{}, len(l.mapping))
		for k, v := range l.mapping {
			m[k] = v
		}
		return m
	}

	out := make([]interface{}, 0, len(l.seq))
	for _, item := range l.seq {
		out = append(out, item)
	}
	return out
}

func (l EntryList) cloneMapping() EntryList {
	m := make(map[string]interface{}, len(l.mapping)+1)
	for k, v := range l.mapping {
		m[k] = v
	}
	return EntryList{form: MappingForm, sep: l.sep, mapping: m}
}

func (l EntryList) sortedKeys() []string {
	keys := make([]string, 0, len(l.mapping))
	for k := range l.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l EntryList) render(key string) string {
	raw := l.mapping[key]
	if raw == nil {
		return key
	}
	s, _ := scalarString(raw)
	return key + l.sep + s
}

// scalarString renders a decoded YAML scalar as text.
func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case uint64:
		return strconv.FormatUint(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
