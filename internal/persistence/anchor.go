// Package persistence contains helpers shared by repository implementations
// and adapters that synthesize their own sync anchors.
package persistence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// TimeAnchor is the synthetic cursor used by platforms whose SDK does not
// hand back an opaque anchor (Google Fit). It marks the end instant of the
// newest sample seen for a stream, plus the stream name for sanity checks.
type TimeAnchor struct {
	Watermark time.Time
	Stream    string
}

// EncodeTimeAnchor serialises the anchor to an opaque token.
func EncodeTimeAnchor(a *TimeAnchor) string {
	if a == nil {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", a.Watermark.UTC().Format(time.RFC3339Nano), a.Stream)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeTimeAnchor parses an encoded anchor token. An empty token decodes to
// nil, meaning "no anchor yet".
func DecodeTimeAnchor(token string) (*TimeAnchor, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid anchor format")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, err
	}
	return &TimeAnchor{Watermark: ts, Stream: parts[1]}, nil
}
