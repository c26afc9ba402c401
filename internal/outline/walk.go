package outline

import (
	"iter"
	"regexp"
	"slices"
	"strings"
)

// Path is the chain of cleaned heading titles from the document root down to
// the node being visited.
type Path []string

// Clone returns a copy that stays valid after the walk moves on.
func (p Path) Clone() Path {
	return slices.Clone(p)
}

// String joins the headings with "->".
func (p Path) String() string {
	return strings.Join(p, "->")
}

var linkRe = regexp.MustCompile(`\[\[.*?\]\[(.*?)\]\]`)

// CleanHeading replaces "[[target][label]]" links by their label.
func CleanHeading(s string) string {
	return linkRe.ReplaceAllString(s, "$1")
}

type workItem struct {
	node Node
	pop  bool
}

// Walk visits every node depth-first in document order and yields it with
// the heading path at that point. A heading is yielded with its own title
// already on the path. The yielded Path is reused between iterations; Clone
// it to keep it.
func Walk(doc *Document) iter.Seq2[Node, Path] {
	return func(yield func(Node, Path) bool) {
		work := make([]workItem, 0, len(doc.Children))
		work = pushChildren(work, doc.Children)

		var path Path
		for len(work) > 0 {
			item := work[len(work)-1]
			work = work[:len(work)-1]

			if item.pop {
				if len(path) > 0 {
					path = path[:len(path)-1]
				}
				continue
			}

			switch n := item.node.(type) {
			case *Heading:
				path = append(path, CleanHeading(n.Title))
				if !yield(n, path) {
					return
				}
				work = append(work, workItem{pop: true})
				work = pushChildren(work, n.Children)
			case *Schedule, *Drawer, Text:
				if !yield(n, path) {
					return
				}
			}
		}
	}
}

// pushChildren pushes nodes in reverse so they pop in document order.
func pushChildren(work []workItem, nodes []Node) []workItem {
	for i := len(nodes) - 1; i >= 0; i-- {
		work = append(work, workItem{node: nodes[i]})
	}
	return work
}
