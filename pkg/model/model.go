package model

// Node is a number in a diagram.
// The label is drawn inside the circle; an empty label renders a nameless dot.
type Node struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Labeled reports whether the node has text to draw
func (n Node) Labeled() bool {
	return n.Label != ""
}

// Link is a directed relation between two nodes (e.g. "succ", "less than").
// Source == Target is a valid self-loop.
type Link struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	Label  string `json:"label"`
}

// SelfLoop reports whether the link starts and ends at the same node
func (l Link) SelfLoop() bool {
	return l.Source == l.Target
}
