package graph

import (
	"maps"
	"slices"
)

// Message is one entry of the state's message log. Producer is always the name of the
// node that emitted it; the executor overwrites whatever a node puts there.
type Message struct {
	Producer string `json:"producer"`
	Content  string `json:"content"`
}

// Metadata is request-scoped configuration visible to every node. Nodes only read it.
type Metadata map[string]any

// Bool returns the boolean stored under key, or false.
func (m Metadata) Bool(key string) bool {
	v, _ := m[key].(bool)
	return v
}

// String returns the string stored under key, or "".
func (m Metadata) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// Partial is what a node returns: only the messages and data keys it adds.
type Partial struct {
	Messages []Message     `json:"messages,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Say appends a message to the partial. The producer is filled in by the executor.
func (p Partial) Say(content string) Partial {
	p.Messages = append(slices.Clone(p.Messages), Message{Content: content})
	return p
}

// Set stores a data key on the partial.
func (p Partial) Set(key string, value any) Partial {
	data := maps.Clone(p.Data)
	if data == nil {
		data = make(map[string]any)
	}
	data[key] = value
	p.Data = data
	return p
}

// Message returns the content of the first message in the partial.
func (p Partial) Message() (string, bool) {
	if len(p.Messages) == 0 {
		return "", false
	}
	return p.Messages[0].Content, true
}

func (p Partial) tagged(producer string) Partial {
	out := Partial{Data: maps.Clone(p.Data)}
	if len(p.Messages) > 0 {
		out.Messages = make([]Message, len(p.Messages))
		for i, m := range p.Messages {
			out.Messages[i] = Message{Producer: producer, Content: m.Content}
		}
	}
	return out
}

// State is the container threaded through the graph. A node must treat the State it
// receives as read-only; every node gets its own copy built by the executor.
type State struct {
	Messages []Message      `json:"messages"`
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata,omitempty"`
	// Lineage lists the nodes whose partials have been applied, in application order.
	Lineage []string `json:"lineage,omitempty"`

	outputs map[string]Partial
}

// NewState creates the initial state for a run.
func NewState(data map[string]any, metadata Metadata) State {
	d := maps.Clone(data)
	if d == nil {
		d = make(map[string]any)
	}
	return State{
		Data:     d,
		Metadata: maps.Clone(metadata),
	}
}

// Get returns a data value.
func (s State) Get(key string) (any, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// String returns a data value as a string, or "" when absent or of another type.
func (s State) String(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// MessagesFrom returns every message emitted by producer, in append order.
func (s State) MessagesFrom(producer string) []Message {
	var out []Message
	for _, m := range s.Messages {
		if m.Producer == producer {
			out = append(out, m)
		}
	}
	return out
}

// Output returns the partial produced by an upstream node. The executor guarantees that
// every predecessor of the running node has a slot.
func (s State) Output(node string) (Partial, bool) {
	p, ok := s.outputs[node]
	return p, ok
}

// Contributed reports whether node's partial is already part of this state.
func (s State) Contributed(node string) bool {
	return slices.Contains(s.Lineage, node)
}

// Clone returns a copy whose maps and slices can be modified independently.
func (s State) Clone() State {
	return State{
		Messages: slices.Clone(s.Messages),
		Data:     maps.Clone(s.Data),
		Metadata: maps.Clone(s.Metadata),
		Lineage:  slices.Clone(s.Lineage),
		outputs:  maps.Clone(s.outputs),
	}
}

// Merge returns s with other folded in. Data keys from other win, messages already present
// are not repeated, and metadata keys missing from s are copied over. Merging a state with
// itself yields an identical state.
func (s State) Merge(other State) State {
	out := s.Clone()

	seen := make(map[Message]struct{}, len(out.Messages))
	for _, m := range out.Messages {
		seen[m] = struct{}{}
	}
	for _, m := range other.Messages {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out.Messages = append(out.Messages, m)
	}

	if len(other.Data) > 0 && out.Data == nil {
		out.Data = make(map[string]any, len(other.Data))
	}
	maps.Copy(out.Data, other.Data)

	for k, v := range other.Metadata {
		if _, ok := out.Metadata[k]; ok {
			continue
		}
		if out.Metadata == nil {
			out.Metadata = make(Metadata)
		}
		out.Metadata[k] = v
	}

	for _, name := range other.Lineage {
		if !slices.Contains(out.Lineage, name) {
			out.Lineage = append(out.Lineage, name)
		}
	}
	for name, p := range other.outputs {
		if _, ok := out.outputs[name]; ok {
			continue
		}
		if out.outputs == nil {
			out.outputs = make(map[string]Partial)
		}
		out.outputs[name] = p
	}
	return out
}

// absorb applies a tagged partial in place. Only used on states owned by the executor.
func (s *State) absorb(node string, p Partial) {
	s.Messages = append(s.Messages, p.Messages...)
	if len(p.Data) > 0 && s.Data == nil {
		s.Data = make(map[string]any, len(p.Data))
	}
	maps.Copy(s.Data, p.Data)
	s.Lineage = append(s.Lineage, node)
	if s.outputs == nil {
		s.outputs = make(map[string]Partial)
	}
	s.outputs[node] = p
}
