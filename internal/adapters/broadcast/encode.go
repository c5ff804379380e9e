package broadcast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Encode renders one event stream frame:
//
//	event: <name>
//	data: <json>
//	<blank line>
//
// A nil payload is sent as {}.
func Encode(event string, payload any) ([]byte, error) {
	if event == "" || strings.ContainsAny(event, "\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEvent, event)
	}

	data := []byte("{}")
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(event) + len(data) + 16)
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
