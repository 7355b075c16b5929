package family

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Roster is a map of member id to member that preserves insertion order,
// both in memory and across a JSON round trip. Plain map iteration would
// shuffle members between prompt renders and saved files.
type Roster struct {
	order []string
	byID  map[string]*Member
}

func NewRoster() *Roster {
	return &Roster{byID: make(map[string]*Member)}
}

// Add inserts a member, keeping the first-insertion position on re-add.
func (r *Roster) Add(m *Member) {
	if r.byID == nil {
		r.byID = make(map[string]*Member)
	}
	if _, ok := r.byID[m.ID]; !ok {
		r.order = append(r.order, m.ID)
	}
	r.byID[m.ID] = m
}

func (r *Roster) Get(id string) (*Member, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// IDs returns member ids in insertion order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Roster) Len() int { return len(r.order) }

func (r *Roster) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Roster) UnmarshalJSON(data []byte) error {
	r.order = nil
	r.byID = make(map[string]*Member)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("members: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("members: expected string key, got %v", keyTok)
		}
		var m Member
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("members: decode %q: %w", id, err)
		}
		m.ID = id
		r.Add(&m)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
