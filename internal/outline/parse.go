package outline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

var (
	headingRe  = regexp.MustCompile(`^(\*+)(?:[ \t]+(.*))?$`)
	tagsRe     = regexp.MustCompile(`^(.*?)[ \t]+(:(?:[^\s:]+:)+)$`)
	stateRe    = regexp.MustCompile(`^(?:(TODO|DONE)(?:[ \t]+|$))?(?:\[#([A-Za-z0-9])\](?:[ \t]+|$))?`)
	drawerRe   = regexp.MustCompile(`^:([\w-]+):$`)
	planningRe = regexp.MustCompile(`(DEADLINE|SCHEDULED|CLOSED):\s*(<[^>]*>(?:--<[^>]*>)?|\[[^\]]*\](?:--\[[^\]]*\])?)`)
)

// ParseFile reads and parses the outline document at path.
func ParseFile(path string, loc *time.Location) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Parse(f, loc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse builds a document tree from r. Planning timestamps are resolved in loc.
func Parse(r io.Reader, loc *time.Location) (*Document, error) {
	p := &parser{doc: &Document{}, loc: loc}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		p.line(strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	p.flushDrawer()
	return p.doc, nil
}

type parser struct {
	doc   *Document
	loc   *time.Location
	stack []*Heading

	drawer    *Drawer
	drawerRaw []string
}

func (p *parser) line(line string) {
	if m := headingRe.FindStringSubmatch(line); m != nil {
		p.flushDrawer()
		p.heading(len(m[1]), m[2])
		return
	}

	trimmed := strings.TrimSpace(line)

	if p.drawer != nil {
		if strings.EqualFold(trimmed, ":END:") {
			p.add(p.drawer)
			p.drawer, p.drawerRaw = nil, nil
			return
		}
		p.drawer.Lines = append(p.drawer.Lines, trimmed)
		p.drawerRaw = append(p.drawerRaw, line)
		return
	}

	if m := drawerRe.FindStringSubmatch(trimmed); m != nil && !strings.EqualFold(m[1], "END") {
		p.drawer = &Drawer{Name: m[1]}
		p.drawerRaw = []string{line}
		return
	}

	if isPlanning(trimmed) {
		p.add(p.planning(trimmed))
		return
	}

	p.add(Text{Line: line})
}

func (p *parser) heading(level int, rest string) {
	h := &Heading{Level: level, Title: strings.TrimSpace(rest)}
	if m := tagsRe.FindStringSubmatch(h.Title); m != nil {
		h.Title = strings.TrimSpace(m[1])
		h.Tags = strings.Split(strings.Trim(m[2], ":"), ":")
	}
	if m := stateRe.FindStringSubmatch(h.Title); m[0] != "" {
		h.Todo, h.Priority = m[1], m[2]
		h.Title = h.Title[len(m[0]):]
	}

	for len(p.stack) > 0 && p.stack[len(p.stack)-1].Level >= level {
		p.stack = p.stack[:len(p.stack)-1]
	}
	p.add(h)
	p.stack = append(p.stack, h)
}

func (p *parser) planning(line string) *Schedule {
	s := &Schedule{}
	for _, m := range planningRe.FindAllStringSubmatch(line, -1) {
		ts := ParseTimestamp(m[2], p.loc)
		switch m[1] {
		case "DEADLINE":
			s.Deadline = &ts
		case "SCHEDULED":
			s.Scheduled = &ts
		case "CLOSED":
			s.Closed = &ts
		}
	}
	return s
}

// flushDrawer turns an unterminated drawer back into plain text.
func (p *parser) flushDrawer() {
	if p.drawer == nil {
		return
	}
	for _, l := range p.drawerRaw {
		p.add(Text{Line: l})
	}
	p.drawer, p.drawerRaw = nil, nil
}

func (p *parser) add(n Node) {
	if len(p.stack) == 0 {
		p.doc.Children = append(p.doc.Children, n)
		return
	}
	top := p.stack[len(p.stack)-1]
	top.Children = append(top.Children, n)
}

func isPlanning(line string) bool {
	return strings.HasPrefix(line, "DEADLINE:") ||
		strings.HasPrefix(line, "SCHEDULED:") ||
		strings.HasPrefix(line, "CLOSED:")
}
