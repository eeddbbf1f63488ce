package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

// inputBatch is one line of newline-delimited input.
type inputBatch struct {
	Static     bool                   `json:"static"`
	Transforms []msg.TransformStamped `json:"transforms"`
}

// maxLineSize bounds a single input line.
const maxLineSize = 4 * 1024 * 1024

// readBatches decodes one batch per line and hands each to fn in order.
// Blank lines and lines starting with '#' are skipped.
func readBatches(r io.Reader, fn func(batch msg.TFMessage, static bool) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var n, line int
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var b inputBatch
		if err := json.Unmarshal([]byte(text), &b); err != nil {
			return n, fmt.Errorf("line %d: failed to parse batch: %w", line, err)
		}
		if err := fn(msg.TFMessage{Transforms: b.Transforms}, b.Static); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n += len(b.Transforms)
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("failed to read input: %w", err)
	}
	return n, nil
}
