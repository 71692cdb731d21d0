package rpc

import (
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/duplexkit/duplex-go/codec"
	"github.com/duplexkit/duplex-go/logger"
	"github.com/duplexkit/duplex-go/metrics"
	"github.com/duplexkit/duplex-go/proto"
	"github.com/duplexkit/duplex-go/task"
)

// servicePull adapts a service's internal side into the protocol pull:
// values encode through the codec, a nil value ends the stream.
func servicePull[I, E any](s Service[I, E], c codec.Codec) proto.Pull {
	return func(t *task.Task) ([]byte, error) {
		v, err := s.Internal(t)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		return codec.Marshal(c, v)
	}
}

// servicePush adapts a service's external side into the protocol push.
// Terminal reasons are dropped silently. Decode and validation failures
// drop the payload; the session keeps going.
func servicePush[I, E any](s Service[I, E], c codec.Codec, validate func(interface{}) bool) proto.Push {
	return func(b []byte, err error) {
		if err != nil {
			return
		}
		var raw interface{}
		if err := codec.Unmarshal(c, b, &raw); err != nil {
			metrics.DecodeFailures.Inc()
			logger.Warn("rpc: payload decode failed", zap.Error(err))
			return
		}
		if validate != nil && !validate(raw) {
			logger.Warn("rpc: payload rejected by validator")
			return
		}
		var v E
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &v,
		})
		if err != nil {
			return
		}
		if err := dec.Decode(raw); err != nil {
			metrics.DecodeFailures.Inc()
			logger.Warn("rpc: payload conversion failed", zap.Error(err))
			return
		}
		s.External(v)
	}
}
