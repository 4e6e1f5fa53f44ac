package soap

import "strings"

// Attr is a fixed attribute written by Writer. Attribute values are part of
// the wire contract and are written verbatim.
type Attr struct {
	Name  string
	Value string
}

// Writer assembles envelope fragments. Every caller-supplied value passes
// through Text, which encodes it; Ident is reserved for values that must
// appear literally on the wire and have already been validated.
type Writer struct {
	b strings.Builder
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Open writes a start tag.
func (w *Writer) Open(name string, attrs ...Attr) *Writer {
	w.b.WriteByte('<')
	w.b.WriteString(name)
	w.writeAttrs(attrs)
	w.b.WriteByte('>')
	return w
}

// Close writes an end tag.
func (w *Writer) Close(name string) *Writer {
	w.b.WriteString("</")
	w.b.WriteString(name)
	w.b.WriteByte('>')
	return w
}

// Empty writes a self-closing element.
func (w *Writer) Empty(name string, attrs ...Attr) *Writer {
	w.b.WriteByte('<')
	w.b.WriteString(name)
	w.writeAttrs(attrs)
	w.b.WriteString(" />")
	return w
}

// Nil writes <name i:nil='true' />.
func (w *Writer) Nil(name string) *Writer {
	return w.Empty(name, Attr{Name: "i:nil", Value: "true"})
}

// Text writes encoded character data.
func (w *Writer) Text(s string) *Writer {
	w.b.WriteString(Encode(s))
	return w
}

// Ident writes s verbatim.
func (w *Writer) Ident(s string) *Writer {
	w.b.WriteString(s)
	return w
}

// Element writes <name>encoded text</name>.
func (w *Writer) Element(name, text string, attrs ...Attr) *Writer {
	return w.Open(name, attrs...).Text(text).Close(name)
}

// IdentElement writes <name>verbatim text</name>.
func (w *Writer) IdentElement(name, text string, attrs ...Attr) *Writer {
	return w.Open(name, attrs...).Ident(text).Close(name)
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.b.Len()
}

// String returns the accumulated XML.
func (w *Writer) String() string {
	return w.b.String()
}

func (w *Writer) writeAttrs(attrs []Attr) {
	for _, a := range attrs {
		w.b.WriteByte(' ')
		w.b.WriteString(a.Name)
		w.b.WriteString("='")
		w.b.WriteString(a.Value)
		w.b.WriteByte('\'')
	}
}

// Type returns an i:type attribute.
func Type(value string) Attr {
	return Attr{Name: "i:type", Value: value}
}

// Xmlns returns a namespace declaration attribute.
func Xmlns(prefix, uri string) Attr {
	return Attr{Name: "xmlns:" + prefix, Value: uri}
}
