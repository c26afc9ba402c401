// Package outline reads and writes org-style outline documents: nested
// "*" headings carrying planning lines (DEADLINE/SCHEDULED/CLOSED), drawers
// and free text.
package outline

// Node is one element of a parsed document. The set of implementations is
// closed: *Heading, *Schedule, *Drawer and Text.
type Node interface {
	node()
}

// Document is the root of a parsed outline file.
type Document struct {
	Children []Node
}

// Heading is a "*"-prefixed line and everything nested below it.
type Heading struct {
	Level int

	// Todo is the TODO/DONE keyword and Priority the letter of a "[#A]"
	// cookie; neither is part of Title.
	Todo     string
	Priority string
	Title    string
	Tags     []string
	Children []Node
}

// Schedule is a planning line. Nil fields were not present.
type Schedule struct {
	Deadline  *Timestamp
	Scheduled *Timestamp
	Closed    *Timestamp
}

// Drawer is a ":NAME:" ... ":END:" block; Lines excludes both delimiters.
type Drawer struct {
	Name  string
	Lines []string
}

// Text is any line that is not part of another element.
type Text struct {
	Line string
}

func (*Heading) node()  {}
func (*Schedule) node() {}
func (*Drawer) node()   {}
func (Text) node()      {}

// Append adds children to the heading and returns it.
func (h *Heading) Append(nodes ...Node) *Heading {
	h.Children = append(h.Children, nodes...)
	return h
}
