package deepthink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/everydev1618/godeepthink/llm"
)

// caller is what stage agents need from the gateway. Satisfied by
// *Gateway and by the per-run metering wrapper.
type caller interface {
	Generate(ctx context.Context, runID, prompt string, params GenParams) (*llm.Response, error)
}

// extractJSON strips markdown code fences and surrounding prose from a
// model reply, returning the outermost JSON object. Models fenced-in
// JSON despite instructions often enough that this is load-bearing.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}
	return s[start : end+1], nil
}

// invokeJSON calls the gateway and decodes the reply into out. A reply
// that fails to parse gets exactly one corrective retry with the parse
// failure appended to the prompt.
func invokeJSON(ctx context.Context, gw caller, runID, prompt string, params GenParams, out any) error {
	params.JSON = true

	resp, err := gw.Generate(ctx, runID, prompt, params)
	if err != nil {
		return err
	}

	if perr := decodeJSON(resp.Text, out); perr != nil {
		resp, err = gw.Generate(ctx, runID, prompt+fmt.Sprintf(correctiveSuffixFmt, perr), params)
		if err != nil {
			return err
		}
		if perr = decodeJSON(resp.Text, out); perr != nil {
			return perr
		}
	}
	return nil
}

func decodeJSON(text string, out any) error {
	raw, err := extractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
