// Copyright 2024 Fitness Knowledge Service Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chunker splits knowledge documents into overlapping chunks sized
// for embedding and retrieval. Splits prefer sentence boundaries so chunks
// stay semantically coherent.
package chunker

import (
	"strings"
)

// Default chunking parameters tuned for short retrieval passages
const (
	DefaultChunkSize = 400
	DefaultOverlap   = 80
)

// Split splits text into chunks of at most chunkSize characters with
// roughly overlap characters carried between consecutive chunks.
func Split(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}
	}
	if len(text) <= chunkSize {
		return []string{text}
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	var chunks []string
	words := strings.Fields(text)

	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+len(word)+1 > chunkSize {
			chunk := current.String()
			if atBoundary := findSentenceBreak(chunk); atBoundary != "" {
				chunks = append(chunks, strings.TrimSpace(atBoundary))
				remaining := strings.TrimSpace(chunk[len(atBoundary):])
				current.Reset()
				current.WriteString(remaining)
			} else {
				chunks = append(chunks, strings.TrimSpace(chunk))
				current.Reset()
				current.WriteString(tailOverlap(chunk, overlap))
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if last := strings.TrimSpace(current.String()); last != "" {
		chunks = append(chunks, last)
	}

	return chunks
}

// tailOverlap returns the last whole words of a chunk up to overlap characters
func tailOverlap(chunk string, overlap int) string {
	if overlap <= 0 || len(chunk) <= overlap {
		return ""
	}
	tail := chunk[len(chunk)-overlap:]
	// Drop the leading partial word
	if idx := strings.IndexByte(tail, ' '); idx >= 0 {
		return strings.TrimSpace(tail[idx+1:])
	}
	return ""
}

// findSentenceBreak finds the last sentence boundary in the text
func findSentenceBreak(text string) string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

	lastIndex := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(text, ender); idx > lastIndex {
			lastIndex = idx + len(ender)
		}
	}

	if lastIndex > 0 {
		return text[:lastIndex]
	}

	return ""
}

// ParseMarkdown extracts plain text content from a markdown document
func ParseMarkdown(content string) string {
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "# "):
			cleanLines = append(cleanLines, strings.TrimPrefix(line, "# "))
		case strings.HasPrefix(line, "## "):
			cleanLines = append(cleanLines, strings.TrimPrefix(line, "## "))
		case strings.HasPrefix(line, "### "):
			cleanLines = append(cleanLines, strings.TrimPrefix(line, "### "))
		default:
			cleanLines = append(cleanLines, line)
		}
	}

	return strings.TrimSpace(strings.Join(cleanLines, "\n"))
}
