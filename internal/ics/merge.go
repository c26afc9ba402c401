package ics

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MergeProdID is the PRODID of merged feeds.
const MergeProdID = "-//orgcal//merger v1.0//EN"

// Merge concatenates already-serialized calendars under one VCALENDAR
// envelope. Every input line is copied except the inputs' own
// BEGIN/END:VCALENDAR, VERSION, PRODID and CALSCALE lines. Lines are not
// validated; whatever an input carries passes through.
func Merge(w io.Writer, name, description string, inputs ...io.Reader) error {
	bw := bufio.NewWriter(w)
	header := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + MergeProdID,
		"CALSCALE:GREGORIAN",
		"X-WR-CALNAME;VALUE=TEXT:" + name,
		"X-WR-CALDESC;VALUE=TEXT:" + description,
	}
	for _, l := range header {
		writeLine(bw, l)
	}

	for i, in := range inputs {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for sc.Scan() {
			line := strings.TrimSuffix(sc.Text(), "\r")
			if skipEnvelope(line) {
				continue
			}
			writeLine(bw, line)
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("merge input %d: %w", i, err)
		}
	}

	writeLine(bw, "END:VCALENDAR")
	return bw.Flush()
}

// MergeFiles merges the files at paths in order.
func MergeFiles(name, description string, paths []string) ([]byte, error) {
	inputs := make([]io.Reader, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, bytes.NewReader(data))
	}

	var buf bytes.Buffer
	if err := Merge(&buf, name, description, inputs...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FindFiles lists every .ics file below dir in lexical order.
func FindFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".ics") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return files, nil
}

func skipEnvelope(line string) bool {
	if strings.HasPrefix(line, "BEGIN:VCALENDAR") || strings.HasPrefix(line, "END:VCALENDAR") {
		return true
	}
	key, _, _ := strings.Cut(line, ":")
	switch key {
	case "VERSION", "PRODID", "CALSCALE":
		return true
	}
	return false
}

func writeLine(w *bufio.Writer, line string) {
	w.WriteString(line)
	w.WriteString("\r\n")
}
