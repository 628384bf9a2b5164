// Package fitjson renders decoded activity records as JSON for inspection.
// Output never feeds the append pipeline.
package fitjson

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/ganot/trainlog/internal/domain/activity"
)

// Dump renders the record as indented JSON, grouped by message type.
// Timestamps become ISO-8601 text and byte sequences hex text. A non-empty
// msgType restricts the output to that message type and fails when the record
// has none of them.
func Dump(rec *activity.Record, msgType string) ([]byte, error) {
	grouped := make(map[string][]map[string]any)
	for _, m := range rec.Messages {
		if msgType != "" && m.Name != msgType {
			continue
		}
		grouped[m.Name] = append(grouped[m.Name], safeFields(m.Fields))
	}
	if msgType != "" && len(grouped) == 0 {
		return nil, fmt.Errorf("no %q messages in activity", msgType)
	}
	return json.MarshalIndent(grouped, "", "  ")
}

// Write renders the record to w with a trailing newline.
func Write(w io.Writer, rec *activity.Record, msgType string) error {
	data, err := Dump(rec, msgType)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteFile renders the record to path, compressed with zstd when the name
// ends in .zst.
func WriteFile(path string, rec *activity.Record, msgType string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if !strings.HasSuffix(path, ".zst") {
		if err := Write(f, rec, msgType); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	encoder, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if err := Write(encoder, rec, msgType); err != nil {
		encoder.Close()
		f.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close zstd encoder: %w", err)
	}
	return f.Close()
}

func safeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = safeValue(v)
	}
	return out
}

// safeValue converts values encoding/json would mangle or reject: byte
// sequences to hex text, non-finite floats to their decimal-form names.
func safeValue(v any) any {
	switch v := v.(type) {
	case []byte:
		return hex.EncodeToString(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = safeValue(e)
		}
		return out
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return v
}
