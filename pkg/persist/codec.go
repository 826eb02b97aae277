// Package persist writes and reads report files through pluggable codecs.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	jsonExtension = ".json"
	lz4Extension  = ".lz4"

	reportIndent = "  "
)

// Codec serializes a document and names the file extension it produces.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Extension() string
}

// JSONCodec writes JSON without HTML escaping, so SARIF messages keep
// their < > & characters. Empty Indent writes compact JSON.
type JSONCodec struct {
	Indent string
}

// NewJSONCodec returns the codec used for uncompressed reports.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: reportIndent}
}

func (c *JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", c.Indent)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

func (c *JSONCodec) Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

func (c *JSONCodec) Extension() string { return jsonExtension }

// LZ4Codec frames the output of Inner with LZ4 compression.
type LZ4Codec struct {
	Inner Codec
}

// NewLZ4Codec wraps inner. Nil inner means compact JSON.
func NewLZ4Codec(inner Codec) *LZ4Codec {
	if inner == nil {
		inner = &JSONCodec{}
	}

	return &LZ4Codec{Inner: inner}
}

func (c *LZ4Codec) Encode(w io.Writer, v any) error {
	zw := lz4.NewWriter(w)

	if err := c.Inner.Encode(zw, v); err != nil {
		return errors.Join(err, zw.Close())
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("lz4 flush: %w", err)
	}

	return nil
}

func (c *LZ4Codec) Decode(r io.Reader, v any) error {
	return c.Inner.Decode(lz4.NewReader(r), v)
}

func (c *LZ4Codec) Extension() string { return c.Inner.Extension() + lz4Extension }

// ReportCodec picks the codec for report files.
func ReportCodec(compress bool) Codec {
	if compress {
		return NewLZ4Codec(nil)
	}

	return NewJSONCodec()
}
