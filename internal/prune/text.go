// Package prune shortens text for logs and error values without splitting
// UTF-8 sequences.
package prune

import (
	"fmt"
	"unicode/utf8"
)

const DefaultMarker = "[pruned]"

// Edges keeps up to head bytes from the start and tail bytes from the end of
// s, joined by a marker stating how many bytes were dropped. Strings within
// head+tail are returned unchanged.
func Edges(s string, head, tail int) string {
	head, tail = max(head, 0), max(tail, 0)
	if len(s) <= head+tail {
		return s
	}
	prefix := safeUTF8Prefix(s, head)
	suffix := safeUTF8Suffix(s, tail)
	dropped := len(s) - len(prefix) - len(suffix)
	marker := fmt.Sprintf("%s %d bytes", DefaultMarker, dropped)
	switch {
	case prefix == "" && suffix == "":
		return marker
	case suffix == "":
		return prefix + " " + marker
	case prefix == "":
		return marker + " " + suffix
	}
	return prefix + " " + marker + " " + suffix
}

// Bytes is Edges for a byte slice, keeping the head only.
func Bytes(b []byte, limit int) string {
	return Edges(string(b), limit, 0)
}

func safeUTF8Prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func safeUTF8Suffix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}
