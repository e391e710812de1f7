package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Encode serializes an event for the journal or the bus.
func Encode(evt Event) ([]byte, error) {
	data, err := sonic.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal event %q: %w", evt.Type, err)
	}
	return data, nil
}

// Decode parses an encoded event.
func Decode(data []byte) (Event, error) {
	var evt Event
	if err := sonic.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("protocol: unmarshal event: %w", err)
	}
	if evt.Type == "" {
		return evt, fmt.Errorf("protocol: event missing type field")
	}
	return evt, nil
}
