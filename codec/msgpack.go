package codec

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackCodec encodes values as MessagePack.
type MsgpackCodec struct{}

func (c MsgpackCodec) Encoder(w io.Writer) Encoder {
	return msgpack.NewEncoder(w)
}

func (c MsgpackCodec) Decoder(r io.Reader) Decoder {
	return msgpack.NewDecoder(r)
}
