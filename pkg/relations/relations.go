package relations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ritzau/nameless-numbers/pkg/model"
)

// Kind identifies how links are generated over a node list
type Kind string

const (
	Successor        Kind = "succ"
	Predecessor      Kind = "pred"
	StrictlyLessThan Kind = "x-is-less"
	AllPairsLessThan Kind = "less-than"
	Equal            Kind = "equal"
)

// Link labels drawn next to each generated edge
const (
	LabelSucc     = "succ"
	LabelPred     = "pred"
	LabelXIsLess  = "x-is-less"
	LabelLessThan = "less than"
	LabelEqual    = "equal"
)

// Relation selects a link rule. Pivot is a node index and is only used by StrictlyLessThan.
type Relation struct {
	Kind  Kind `json:"kind"`
	Pivot int  `json:"pivot,omitempty"`
}

func (r Relation) String() string {
	if r.Kind == StrictlyLessThan {
		return fmt.Sprintf("%s(%d)", r.Kind, r.Pivot)
	}
	return string(r.Kind)
}

// InvalidRelationError reports an unknown relation kind or an out-of-range pivot
type InvalidRelationError struct {
	Kind   Kind
	Pivot  int
	Nodes  int
	Reason string
}

func (e *InvalidRelationError) Error() string {
	if e.Kind == StrictlyLessThan {
		return fmt.Sprintf("invalid relation %s with pivot %d over %d nodes: %s", e.Kind, e.Pivot, e.Nodes, e.Reason)
	}
	return fmt.Sprintf("invalid relation %q: %s", e.Kind, e.Reason)
}

// ParseKind converts a configuration spelling into a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succ", "successor":
		return Successor, nil
	case "pred", "predecessor":
		return Predecessor, nil
	case "x-is-less", "strictly-less-than", "fan-out":
		return StrictlyLessThan, nil
	case "less-than", "less than", "all-pairs":
		return AllPairsLessThan, nil
	case "equal", "eq", "identity":
		return Equal, nil
	}
	return "", &InvalidRelationError{Kind: Kind(s), Reason: "unknown relation kind"}
}

// BuildNodes creates n nodes with ids 0..n-1.
// Labels are the decimal ids when withLabels is set, otherwise empty.
func BuildNodes(n int, withLabels bool) []model.Node {
	if n < 0 {
		n = 0
	}
	nodes := make([]model.Node, n)
	for i := range nodes {
		nodes[i] = model.Node{ID: i}
		if withLabels {
			nodes[i].Label = strconv.Itoa(i)
		}
	}
	return nodes
}

// Reverse returns a reversed copy of nodes. The input is left untouched.
func Reverse(nodes []model.Node) []model.Node {
	reversed := make([]model.Node, len(nodes))
	for i, n := range nodes {
		reversed[len(nodes)-1-i] = n
	}
	return reversed
}

// BuildLinks generates the links of rel over nodes, in node order.
func BuildLinks(nodes []model.Node, rel Relation) ([]model.Link, error) {
	switch rel.Kind {
	case Successor:
		return chain(nodes, LabelSucc), nil

	case Predecessor:
		// Same chain shape; callers hand in Reverse(nodes) to get i+1 -> i
		return chain(nodes, LabelPred), nil

	case StrictlyLessThan:
		if rel.Pivot < 0 || rel.Pivot >= len(nodes) {
			return nil, &InvalidRelationError{
				Kind:   rel.Kind,
				Pivot:  rel.Pivot,
				Nodes:  len(nodes),
				Reason: "pivot out of range",
			}
		}
		links := make([]model.Link, 0, len(nodes)-1-rel.Pivot)
		pivot := nodes[rel.Pivot]
		for _, target := range nodes[rel.Pivot+1:] {
			links = append(links, model.Link{Source: pivot.ID, Target: target.ID, Label: LabelXIsLess})
		}
		return links, nil

	case AllPairsLessThan:
		links := make([]model.Link, 0, len(nodes)*(len(nodes)-1)/2)
		for i, a := range nodes {
			for _, b := range nodes[i+1:] {
				links = append(links, model.Link{Source: a.ID, Target: b.ID, Label: LabelLessThan})
			}
		}
		return links, nil

	case Equal:
		links := make([]model.Link, 0, len(nodes))
		for _, n := range nodes {
			links = append(links, model.Link{Source: n.ID, Target: n.ID, Label: LabelEqual})
		}
		return links, nil
	}

	return nil, &InvalidRelationError{Kind: rel.Kind, Pivot: rel.Pivot, Nodes: len(nodes), Reason: "unknown relation kind"}
}

// PredecessorChain links every node to the one before it (i+1 -> i)
func PredecessorChain(nodes []model.Node) []model.Link {
	return chain(Reverse(nodes), LabelPred)
}

// ExpectedLinkCount is the closed-form link count of rel over n nodes
func ExpectedLinkCount(rel Relation, n int) int {
	if n <= 0 {
		return 0
	}
	switch rel.Kind {
	case Successor, Predecessor:
		return n - 1
	case StrictlyLessThan:
		if rel.Pivot < 0 || rel.Pivot >= n {
			return 0
		}
		return n - 1 - rel.Pivot
	case AllPairsLessThan:
		return n * (n - 1) / 2
	case Equal:
		return n
	}
	return 0
}

func chain(nodes []model.Node, label string) []model.Link {
	if len(nodes) < 2 {
		return []model.Link{}
	}
	links := make([]model.Link, 0, len(nodes)-1)
	for i := 0; i+1 < len(nodes); i++ {
		links = append(links, model.Link{Source: nodes[i].ID, Target: nodes[i+1].ID, Label: label})
	}
	return links
}
