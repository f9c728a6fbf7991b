// Package markdown reads and writes diary notes: YAML frontmatter, free text
// owned by the reader and named sections owned by readjourney.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

const (
	fence        = "---"
	maxFileName  = 80
	untitledNote = "untitled"
)

var ErrUnterminatedFrontmatter = errors.New("frontmatter is not terminated")

// Note is a markdown document with optional frontmatter.
type Note struct {
	Meta map[string]any
	Body string
}

// Parse splits content into frontmatter and body. CRLF line endings are
// normalized. Content without a leading fence has empty metadata.
func Parse(content string) (Note, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, fence+"\n") {
		return Note{Meta: map[string]any{}, Body: content}, nil
	}
	rest := content[len(fence)+1:]

	var raw, body string
	if strings.HasPrefix(rest, fence+"\n") {
		body = rest[len(fence)+1:]
	} else {
		idx := strings.Index(rest, "\n"+fence+"\n")
		if idx < 0 {
			return Note{}, ErrUnterminatedFrontmatter
		}
		raw = rest[:idx]
		body = rest[idx+len(fence)+2:]
	}

	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		return Note{}, fmt.Errorf("decode frontmatter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return Note{Meta: meta, Body: body}, nil
}

// Render writes the note back with keys in sorted order.
func (n Note) Render() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	if len(n.Meta) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(n.Meta); err != nil {
			return "", fmt.Errorf("encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("encode frontmatter: %w", err)
		}
	}
	buf.WriteString(fence + "\n")
	if !strings.HasPrefix(n.Body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(n.Body)
	return buf.String(), nil
}

func sectionMarkers(name string) (string, string) {
	return "<!-- readjourney:" + name + ":start -->", "<!-- readjourney:" + name + ":end -->"
}

// Section returns the generated content of a named section.
func (n Note) Section(name string) (string, bool) {
	startMarker, endMarker := sectionMarkers(name)
	start := strings.Index(n.Body, startMarker)
	if start < 0 {
		return "", false
	}
	inner := n.Body[start+len(startMarker):]
	end := strings.Index(inner, endMarker)
	if end < 0 {
		return "", false
	}
	return strings.Trim(inner[:end], "\n"), true
}

// SetSection replaces a named section in place, or appends it when the body
// has none. Text outside the markers is never touched.
func (n *Note) SetSection(name, content string) {
	startMarker, endMarker := sectionMarkers(name)
	block := startMarker + "\n" + content + "\n" + endMarker

	if start := strings.Index(n.Body, startMarker); start >= 0 {
		if end := strings.Index(n.Body[start:], endMarker); end >= 0 {
			end += start + len(endMarker)
			n.Body = n.Body[:start] + block + n.Body[end:]
			return
		}
	}
	switch {
	case strings.TrimSpace(n.Body) == "":
		n.Body = block + "\n"
	case strings.HasSuffix(n.Body, "\n"):
		n.Body += "\n" + block + "\n"
	default:
		n.Body += "\n\n" + block + "\n"
	}
}

// FileName turns a title into a lowercase file name stem. Letters and digits
// of any script are kept; everything else collapses into single dashes.
func FileName(title string) string {
	var b strings.Builder
	dash := false
	count := 0
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if count >= maxFileName {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
				count++
			}
			b.WriteRune(r)
			count++
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return untitledNote
	}
	return b.String()
}
