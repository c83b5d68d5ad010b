package openai

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"
)

// explicitFields puts back the chat completion fields the library drops
// when they hold their zero value. The endpoint must always receive
// "temperature" and "stream"; a zero temperature would otherwise fall back
// to the server default.
type explicitFields struct {
	next openaiapi.HTTPDoer
}

var zeroFields = map[string]json.RawMessage{
	"temperature": json.RawMessage("0"),
	"stream":      json.RawMessage("false"),
}

func (d explicitFields) Do(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPost || req.Body == nil || !strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return d.next.Do(req)
	}

	raw, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		changed := false
		for key, zero := range zeroFields {
			if _, ok := fields[key]; !ok {
				fields[key] = zero
				changed = true
			}
		}
		if changed {
			if patched, err := json.Marshal(fields); err == nil {
				raw = patched
			}
		}
	}

	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.ContentLength = int64(len(raw))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return d.next.Do(req)
}
