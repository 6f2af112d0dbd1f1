package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// record is one line of a vector file: an optional label followed by the
// vector components.
type record struct {
	label    uint64
	hasLabel bool
	vector   []float32
}

// readVectors parses whitespace separated vectors, one per line. A line may
// start with "label:". Blank lines and lines starting with # are skipped.
func readVectors(r io.Reader, dim int) ([]record, error) {
	var out []record

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec record
		if head, tail, ok := strings.Cut(text, ":"); ok {
			label, err := strconv.ParseUint(strings.TrimSpace(head), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid label %q", line, head)
			}
			rec.label, rec.hasLabel = label, true
			text = tail
		}

		vec, err := parseVector(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("line %d: expected %d components, got %d", line, dim, len(vec))
		}
		rec.vector = vec
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseVector parses components separated by whitespace or commas.
func parseVector(s string) ([]float32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty vector")
	}

	vec := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid component %q", f)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
