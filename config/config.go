// Package config holds the runtime options and their YAML loading.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/logger"
)

// Options configures a runtime endpoint. Deadlines follow the wire
// contract defaults; routes may override them individually.
type Options struct {
	// AckDeadline bounds how long a sender waits for a per-message ACK.
	AckDeadline time.Duration `yaml:"ack_deadline"`

	// ClientSilentDeadline bounds inter-message silence observed by the
	// responder before the session is declared dead.
	ClientSilentDeadline time.Duration `yaml:"client_silent_deadline"`

	// ServerSilentDeadline is the symmetric deadline observed by the
	// initiator.
	ServerSilentDeadline time.Duration `yaml:"server_silent_deadline"`

	// CodecName selects the payload codec: json, cbor or msgpack.
	CodecName string `yaml:"codec"`

	// InboxCapacity bounds each multiplexed consumer inbox.
	InboxCapacity int `yaml:"inbox_capacity"`

	// OutboxCapacity bounds the shared outbox while no transport sink is
	// connected.
	OutboxCapacity int `yaml:"outbox_capacity"`

	Log logger.Config `yaml:"log"`
}

// Default returns the documented defaults.
func Default() Options {
	return Options{
		AckDeadline:          5 * time.Second,
		ClientSilentDeadline: 30 * time.Second,
		ServerSilentDeadline: 30 * time.Second,
		CodecName:            "json",
		InboxCapacity:        256,
		OutboxCapacity:       256,
	}
}

// Load reads YAML options from path on top of the defaults.
func Load(path string) (Options, error) {
	o := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return o, err
	}
	if err := yaml.Unmarshal(data, &o); err != nil {
		return o, err
	}
	return o, nil
}

// Codec resolves the configured codec.
func (o Options) Codec() (codec.Codec, error) {
	switch o.CodecName {
	case "", "json":
		return codec.JSONCodec{}, nil
	case "cbor":
		return codec.CBORCodec{}, nil
	case "msgpack":
		return codec.MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("config: unknown codec %q", o.CodecName)
}
