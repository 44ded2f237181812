package node

import (
	"context"
	"encoding/json"
)

// Convert assigns all available compatible values with matching member names
// from one object to another.
//
// The dst object needs to be a pointer so that it can be written to. Members
// of these objects that are "specialized", like a struct containing only an
// integer, need to have json.Marshaler and json.Unmarshaler interfaces
// implemented.
func Convert(ctx context.Context, src interface{}, dst interface{}) error {
	// Marshal source object to json.
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}

	// Unmarshal json back into destination object.
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}

	return nil
}
