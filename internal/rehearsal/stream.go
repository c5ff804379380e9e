package rehearsal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// KeepAlive is the Name reported for comment lines.
const KeepAlive = ":"

// ReadEvents parses an event stream from r and calls fn for every complete
// event and every comment line. It returns nil at end of stream.
func ReadEvents(r io.Reader, fn func(Event)) error {
	sc := bufio.NewScanner(r)
	var (
		name string
		data []string
	)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if name != "" || len(data) > 0 {
				if name == "" {
					name = "message"
				}
				fn(Event{Name: name, Data: strings.Join(data, "\n")})
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
			fn(Event{Name: KeepAlive, Data: strings.TrimSpace(line[1:])})
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				data = append(data, value)
			}
		}
	}
	return sc.Err()
}

// OpenStream connects to /api/events and returns the response once the
// server has sent its headers. The caller closes the body.
func OpenStream(ctx context.Context, client *http.Client, baseURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/events", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("event stream has content type %q", ct)
	}
	return resp, nil
}
