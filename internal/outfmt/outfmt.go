// Package outfmt renders command results as text or JSON, optionally
// filtered by a jq expression.
package outfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
)

type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

func Parse(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeText, "":
		return ModeText, nil
	case ModeJSON:
		return ModeJSON, nil
	default:
		return "", errors.New("invalid --output (expected text|json)")
	}
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Emit writes v as JSON, passed through expression first when it is set.
func Emit(w io.Writer, v any, expression string) error {
	if strings.TrimSpace(expression) == "" {
		return WriteJSON(w, v)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	out, err := ApplyJQ(buf.Bytes(), expression)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// ApplyJQ runs a jq expression over JSON bytes. Each result is written on
// its own line, unwrapped.
func ApplyJQ(jsonBytes []byte, expression string) ([]byte, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expression, err)
	}

	var input any
	if err := json.Unmarshal(jsonBytes, &input); err != nil {
		return nil, fmt.Errorf("parse JSON for jq: %w", err)
	}

	iter := query.Run(input)
	var results []byte
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("jq error: %w", err)
		}

		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal jq result: %w", err)
		}
		if len(results) > 0 {
			results = append(results, '\n')
		}
		results = append(results, b...)
	}
	return results, nil
}
