// Package codec defines the pluggable value codec boundary. The runtime
// moves opaque byte payloads; codecs translate application values at the
// edges.
package codec

import (
	"bytes"
	"io"
)

type Encoder interface {
	// Encode writes an encoding of v to its Writer.
	Encode(v interface{}) error
}

type Decoder interface {
	// Decode reads the next encoded value from its Reader and stores it
	// in the value pointed to by v.
	Decode(v interface{}) error
}

// Codec returns an Encoder or Decoder given a Writer or Reader.
type Codec interface {
	Encoder(w io.Writer) Encoder
	Decoder(r io.Reader) Decoder
}

// Marshal encodes v to a byte payload with c.
func Marshal(c Codec, v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a byte payload into v with c.
func Unmarshal(c Codec, b []byte, v interface{}) error {
	return c.Decoder(bytes.NewReader(b)).Decode(v)
}
