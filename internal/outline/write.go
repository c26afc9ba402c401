package outline

import (
	"io"
	"strings"
)

// Format serializes doc back into outline text.
func Format(doc *Document) string {
	var b strings.Builder
	for _, n := range doc.Children {
		writeNode(&b, n)
	}
	return b.String()
}

// WriteTo writes the serialized document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, Format(d))
	return int64(n), err
}

func writeNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Heading:
		b.WriteString(strings.Repeat("*", max(n.Level, 1)))
		b.WriteString(" ")
		if n.Todo != "" {
			b.WriteString(n.Todo + " ")
		}
		if n.Priority != "" {
			b.WriteString("[#" + n.Priority + "] ")
		}
		b.WriteString(n.Title)
		if len(n.Tags) > 0 {
			if !strings.HasSuffix(n.Title, " ") {
				b.WriteString(" ")
			}
			b.WriteString(":" + strings.Join(n.Tags, ":") + ":")
		}
		b.WriteString("\n")
		for _, c := range n.Children {
			writeNode(b, c)
		}
	case *Schedule:
		var parts []string
		if n.Closed != nil {
			parts = append(parts, "CLOSED: "+n.Closed.Raw)
		}
		if n.Deadline != nil {
			parts = append(parts, "DEADLINE: "+n.Deadline.Raw)
		}
		if n.Scheduled != nil {
			parts = append(parts, "SCHEDULED: "+n.Scheduled.Raw)
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	case *Drawer:
		b.WriteString(":" + n.Name + ":\n")
		for _, l := range n.Lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString(":END:\n")
	case Text:
		b.WriteString(n.Line)
		b.WriteString("\n")
	}
}
