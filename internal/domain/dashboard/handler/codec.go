package handler

import (
	"encoding/json"
)

// jsonCodec replaces connect's protobuf-backed JSON codec so the service can
// carry plain Go structs. It keeps the "json" name, so clients speak the
// Connect protocol with Content-Type application/json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
