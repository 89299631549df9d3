package script

import (
	"encoding/xml"
	"errors"
	"io"
	"sort"
	"strings"

	"clapper/internal/textutil"
)

// Attr is one attribute of an overlay fragment, in source order.
type Attr struct {
	Name  string
	Value string
}

// Overlay is a parsed markup fragment attached to a scene, such as
// <chapter title="Chapter 1" duration="3"/>. Mixed content is normalized as
// collapsed text followed by child elements.
type Overlay struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Overlay
}

// ParseFragment parses a block as exactly one well-formed markup fragment.
// Leading or trailing text, multiple roots, and malformed markup are errors;
// the parser falls back to plain-text handling on any of them.
func ParseFragment(block string) (*Overlay, error) {
	decoder := xml.NewDecoder(strings.NewReader(block))
	var root *Overlay
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			if root != nil {
				return nil, errors.New("multiple root elements")
			}
			root, err = decodeElement(decoder, tok)
			if err != nil {
				return nil, err
			}
		case xml.CharData:
			if strings.TrimSpace(string(tok)) != "" {
				return nil, errors.New("text outside root element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

func decodeElement(decoder *xml.Decoder, start xml.StartElement) (*Overlay, error) {
	node := &Overlay{Name: start.Name.Local}
	for _, attr := range start.Attr {
		node.Attrs = append(node.Attrs, Attr{Name: attr.Name.Local, Value: attr.Value})
	}
	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			child, err := decodeElement(decoder, tok)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		case xml.EndElement:
			node.Text = textutil.CollapseWhitespace(text.String())
			return node, nil
		case xml.CharData:
			text.Write(tok)
		}
	}
}

// Canonical returns the deterministic serialization used in scene digests:
// attributes sorted by name, collapsed text, self-closing form for empty
// elements. Attribute order in the source never changes a digest.
func (o *Overlay) Canonical() string {
	var b strings.Builder
	o.writeCanonical(&b)
	return b.String()
}

func (o *Overlay) writeCanonical(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(o.Name)
	attrs := make([]Attr, len(o.Attrs))
	copy(attrs, o.Attrs)
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	for _, attr := range attrs {
		b.WriteByte(' ')
		b.WriteString(attr.Name)
		b.WriteString(`="`)
		b.WriteString(escapeXML(attr.Value))
		b.WriteByte('"')
	}
	if o.Text == "" && len(o.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	b.WriteString(escapeXML(o.Text))
	for _, child := range o.Children {
		child.writeCanonical(b)
	}
	b.WriteString("</")
	b.WriteString(o.Name)
	b.WriteByte('>')
}

func escapeXML(value string) string {
	if value == "" {
		return ""
	}
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(value))
	return b.String()
}

// Attr returns the value of the named attribute, or "" when absent.
func (o *Overlay) Attr(name string) string {
	for _, attr := range o.Attrs {
		if attr.Name == name {
			return attr.Value
		}
	}
	return ""
}

// Title returns the overlay's display title when one is declared.
func (o *Overlay) Title() string {
	return o.Attr("title")
}
