package mi

import (
	"encoding/json"
	"path/filepath"
	"strconv"
)

type Kind int

const (
	KindValue Kind = iota
	KindArray
)

// Node is one named result of a parsed MI record: either a string value or an
// array of child nodes (tuples and lists are both arrays).
type Node struct {
	Name     string
	Kind     Kind
	Value    string
	Children Nodes
}

// Nodes is an ordered list of results. Lookups return the first match.
type Nodes []Node

func V(name, value string) Node {
	return Node{Name: name, Kind: KindValue, Value: value}
}

func A(name string, children ...Node) Node {
	if children == nil {
		children = Nodes{}
	}
	return Node{Name: name, Kind: KindArray, Children: children}
}

func (ns Nodes) Find(name string) (Node, bool) {
	for _, n := range ns {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Value returns the named value node. An array under that name is not a
// value.
func (ns Nodes) Value(name string) (string, bool) {
	n, ok := ns.Find(name)
	if !ok || n.Kind != KindValue {
		return "", false
	}
	return n.Value, true
}

// Get is Value without the presence flag.
func (ns Nodes) Get(name string) string {
	v, _ := ns.Value(name)
	return v
}

func (ns Nodes) Array(name string) (Nodes, bool) {
	n, ok := ns.Find(name)
	if !ok || n.Kind != KindArray {
		return nil, false
	}
	return n.Children, true
}

// LeadValue returns the first result when it is a value.
func (ns Nodes) LeadValue() (string, bool) {
	if len(ns) == 0 || ns[0].Kind != KindValue {
		return "", false
	}
	return ns[0].Value, true
}

func (ns Nodes) LeadArray() (Nodes, bool) {
	if len(ns) == 0 || ns[0].Kind != KindArray {
		return nil, false
	}
	return ns[0].Children, true
}

// Message is one parsed MI output record.
type Message struct {
	// Class is the record prefix and class, e.g. "*stopped",
	// "=thread-created" or "^done".
	Class    string
	Token    string
	HasToken bool
	Results  Nodes
}

// GrabToken returns the echoed correlation token, if any.
func (m Message) GrabToken() (string, bool) {
	return m.Token, m.HasToken
}

// Location is the source position carried by frame and breakpoint tuples.
type Location struct {
	File     string
	Line     int
	BaseName string
	Func     string
	Addr     string
}

// ParseLocation extracts a location. File is the absolute "fullname"; when it
// is unknown the line is dropped as well.
func ParseLocation(ns Nodes) Location {
	loc := Location{
		BaseName: ns.Get("file"),
		Func:     ns.Get("func"),
		Addr:     ns.Get("addr"),
		File:     ns.Get("fullname"),
	}
	loc.Line, _ = strconv.Atoi(ns.Get("line"))
	if loc.File != "" {
		if loc.BaseName == "" {
			loc.BaseName = filepath.Base(loc.File)
		}
		if !IsAbsPath(loc.File) {
			loc.File = ""
		}
	}
	if loc.File == "" || loc.Line < 0 {
		loc.Line = 0
	}
	return loc
}

// IsAbsPath accepts both slash-rooted and drive-letter paths, since the
// backend may run on another platform than the front-end.
func IsAbsPath(path string) bool {
	if path == "" {
		return false
	}
	if path[0] == '/' || path[0] == '\\' {
		return true
	}
	return len(path) >= 3 && isDriveLetter(path[0]) && path[1] == ':' && (path[2] == '/' || path[2] == '\\')
}

func isDriveLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (n Node) MarshalJSON() ([]byte, error) {
	if n.Kind == KindArray {
		items := []Node(n.Children)
		if items == nil {
			items = []Node{}
		}
		return json.Marshal(struct {
			Name  string `json:"name,omitempty"`
			Items []Node `json:"items"`
		}{n.Name, items})
	}
	return json.Marshal(struct {
		Name  string `json:"name,omitempty"`
		Value string `json:"value"`
	}{n.Name, n.Value})
}

// UnmarshalJSON decodes {"name":..,"value":..} as a value node and
// {"name":..,"items":[..]} as an array node.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string  `json:"name"`
		Value *string `json:"value"`
		Items *[]Node `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Name = raw.Name
	if raw.Items != nil {
		n.Kind = KindArray
		n.Children = Nodes(*raw.Items)
		if n.Children == nil {
			n.Children = Nodes{}
		}
		return nil
	}
	n.Kind = KindValue
	if raw.Value != nil {
		n.Value = *raw.Value
	}
	return nil
}
