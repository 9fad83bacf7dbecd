package domain

import "github.com/google/uuid"

// Node is one conversation state in the search tree. The root is
// created by the stage driving the search; children are appended one
// per gateway round. A node owns its children; the parent pointer is a
// back reference only.
type Node struct {
	ID       string
	Parent   *Node
	Depth    int
	Messages []Message

	// Files accumulates the file contents written by tool calls along
	// this node's own round.
	Files map[string]string

	// ShouldBranch marks the node as eligible for beam fan-out rather
	// than linear continuation.
	ShouldBranch bool

	// Stage tags the node with the pipeline stage that created it.
	Stage string

	// Terminal is set once evaluation accepted the completion signal.
	Terminal bool

	children []*Node
}

// NewNode creates a root node (depth 0, no parent).
func NewNode(messages []Message, shouldBranch bool, stage string) *Node {
	return &Node{
		ID:           uuid.NewString(),
		Messages:     messages,
		Files:        make(map[string]string),
		ShouldBranch: shouldBranch,
		Stage:        stage,
	}
}

// NewChild appends a child carrying the given assistant turn. The
// child inherits the parent's transcript, stage tag and branch flag,
// and sits one level deeper.
func (n *Node) NewChild(assistant Message) *Node {
	messages := make([]Message, 0, len(n.Messages)+1)
	messages = append(messages, n.Messages...)
	messages = append(messages, assistant)

	child := &Node{
		ID:           uuid.NewString(),
		Parent:       n,
		Depth:        n.Depth + 1,
		Messages:     messages,
		Files:        make(map[string]string),
		ShouldBranch: n.ShouldBranch,
		Stage:        n.Stage,
	}
	n.children = append(n.children, child)
	return child
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.children) == 0
}

// Children returns the owned children in creation order.
func (n *Node) Children() []*Node {
	return n.children
}

// Descendants returns every node below n in depth-first order.
func (n *Node) Descendants() []*Node {
	var all []*Node
	for _, child := range n.children {
		all = append(all, child)
		all = append(all, child.Descendants()...)
	}
	return all
}

// Trajectory returns the root-to-n chain, root first.
func (n *Node) Trajectory() []*Node {
	var path []*Node
	for cur := n; cur != nil; cur = cur.Parent {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// TrajectoryFiles merges the file sets along the trajectory. Later
// nodes override earlier ones. Empty content is a valid file, not a
// tombstone.
func (n *Node) TrajectoryFiles() map[string]string {
	merged := make(map[string]string)
	for _, node := range n.Trajectory() {
		for path, content := range node.Files {
			merged[path] = content
		}
	}
	return merged
}

// LastMessage returns the most recent turn, or a zero Message for an
// empty transcript.
func (n *Node) LastMessage() Message {
	if len(n.Messages) == 0 {
		return Message{}
	}
	return n.Messages[len(n.Messages)-1]
}

// AppendMessage adds a turn to the node in place. This is the only
// mutation nodes see after creation: evaluation feedback.
func (n *Node) AppendMessage(m Message) {
	n.Messages = append(n.Messages, m)
}
