package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// UnsupportedExitCode is the helper exit status that signals an unparseable
// module without treating it as a failure.
const UnsupportedExitCode = 3

// Command runs an external helper for every module. The helper receives the
// module bytes on stdin and writes one JSON document to stdout:
//
//	{"supported": true, "pattern_digest": 1234, "channel_count": 4,
//	 "instruments": ["..."],
//	 "samples": [{"ordinal": 0, "payload": "<base64>", "text": "...",
//	              "byte_length": 10, "decoded_length": 10}]}
type Command struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

type commandOutput struct {
	Supported     *bool           `json:"supported"`
	PatternDigest uint64          `json:"pattern_digest"`
	ChannelCount  int             `json:"channel_count"`
	Instruments   []string        `json:"instruments"`
	Samples       []commandSample `json:"samples"`
}

type commandSample struct {
	Ordinal       int     `json:"ordinal"`
	Payload       *string `json:"payload"`
	Text          string  `json:"text"`
	ByteLength    int64   `json:"byte_length"`
	DecodedLength int64   `json:"decoded_length"`
}

// NewCommand builds a Command analyzer. An empty binary yields nil so callers
// can fall back to Unsupported.
func NewCommand(binary string, args []string, timeout time.Duration) *Command {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil
	}
	return &Command{Binary: binary, Args: append([]string(nil), args...), Timeout: timeout}
}

// Analyze executes the helper against data.
func (c *Command) Analyze(ctx context.Context, data []byte) (*Result, error) {
	if c == nil || c.Binary == "" {
		return nil, ErrUnsupported
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == UnsupportedExitCode {
			return nil, ErrUnsupported
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analyzer %s: %w", c.Binary, ctxErr)
		}
		return nil, fmt.Errorf("analyzer %s: %w: %s", c.Binary, err, strings.TrimSpace(stderr.String()))
	}

	return decodeCommandOutput(stdout.Bytes())
}

func decodeCommandOutput(raw []byte) (*Result, error) {
	var out commandOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("analyzer parse: %w", err)
	}
	if out.Supported != nil && !*out.Supported {
		return nil, ErrUnsupported
	}

	result := &Result{
		PatternDigest: out.PatternDigest,
		Instruments:   out.Instruments,
		ChannelCount:  out.ChannelCount,
		Samples:       make([]SamplePayload, 0, len(out.Samples)),
	}
	for _, s := range out.Samples {
		sample := SamplePayload{
			Ordinal:       s.Ordinal,
			Text:          s.Text,
			ByteLength:    s.ByteLength,
			DecodedLength: s.DecodedLength,
		}
		if s.Payload != nil {
			payload, err := base64.StdEncoding.DecodeString(*s.Payload)
			if err != nil {
				return nil, fmt.Errorf("analyzer parse: sample %d payload: %w", s.Ordinal, err)
			}
			sample.Payload = payload
		}
		result.Samples = append(result.Samples, sample)
	}
	return result, nil
}
