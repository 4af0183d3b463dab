package codegen

import (
	"bytes"
	"fmt"
	"go/format"
)

// Emitter accumulates generated Go source with indentation tracking.
type Emitter struct {
	buf    bytes.Buffer
	indent int
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// Line writes one indented line.
func (e *Emitter) Line(format string, args ...any) {
	for i := 0; i < e.indent; i++ {
		e.buf.WriteByte('\t')
	}
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteByte('\n')
}

// Blank writes an empty line.
func (e *Emitter) Blank() {
	e.buf.WriteByte('\n')
}

func (e *Emitter) In()  { e.indent++ }
func (e *Emitter) Out() {
	if e.indent > 0 {
		e.indent--
	}
}

// Bytes returns the raw emitted source.
func (e *Emitter) Bytes() []byte {
	return e.buf.Bytes()
}

// Formatted returns the emitted source run through gofmt. Formatting
// failure means the generator produced invalid Go, so the raw source
// is returned alongside the error for diagnosis.
func (e *Emitter) Formatted() ([]byte, error) {
	out, err := format.Source(e.buf.Bytes())
	if err != nil {
		return e.buf.Bytes(), fmt.Errorf("format generated source: %w", err)
	}
	return out, nil
}
