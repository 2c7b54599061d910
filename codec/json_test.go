package codec

import (
	"bytes"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONEncodersAgree(t *testing.T) {
	in := sample{Name: "stash", Count: 3}

	for _, useGoJSON := range []bool{true, false} {
		UseGoJSON = useGoJSON

		data, err := JSONMarshal(in)
		if err != nil {
			t.Fatalf("JSONMarshal (go-json=%v): %v", useGoJSON, err)
		}

		var out sample
		if err := JSONUnmarshal(data, &out); err != nil {
			t.Fatalf("JSONUnmarshal (go-json=%v): %v", useGoJSON, err)
		}
		if out != in {
			t.Errorf("Round trip mismatch (go-json=%v): %+v", useGoJSON, out)
		}

		var buf bytes.Buffer
		if err := JSONMarshalWrite(&buf, in); err != nil {
			t.Fatalf("JSONMarshalWrite (go-json=%v): %v", useGoJSON, err)
		}
		out = sample{}
		if err := JSONUnmarshalRead(&buf, &out); err != nil {
			t.Fatalf("JSONUnmarshalRead (go-json=%v): %v", useGoJSON, err)
		}
		if out != in {
			t.Errorf("Stream round trip mismatch (go-json=%v): %+v", useGoJSON, out)
		}
	}
	UseGoJSON = true
}
