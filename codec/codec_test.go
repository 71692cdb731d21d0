package codec

import (
	"testing"
)

type testData struct {
	Map map[string]bool
	Arr []int
}

func TestCodecs(t *testing.T) {
	for name, c := range map[string]Codec{
		"json":    JSONCodec{},
		"cbor":    CBORCodec{},
		"msgpack": MsgpackCodec{},
	} {
		b, err := Marshal(c, testData{
			Map: map[string]bool{"true": true, "false": false},
			Arr: []int{1, 2, 3},
		})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}

		var data testData
		if err := Unmarshal(c, b, &data); err != nil {
			t.Fatalf("%s: %v", name, err)
		}

		if data.Map["true"] != true || data.Arr[2] != 3 {
			t.Fatalf("%s: unexpected data: %v", name, data)
		}
	}
}
