// Copyright 2026 ldmonster
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

// Package pathcodec encodes and decodes the synthetic per-track path form
// `<dir>/<stem>.flaccuesplit.<start>.<end><ext>` used to address a time
// window inside a real backing audio file without ever writing that window
// to disk.
package pathcodec

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Marker separates a backing file's stem from the encoded time window.
const Marker = ".flaccuesplit."

// EndSentinel is the resolved end-of-file time, in seconds, used whenever a
// synthetic path's end token is "-1" or otherwise unparseable.
const EndSentinel = 36000.0

// Decoded is the result of splitting a synthetic path into its real backing
// path and the time window it addresses.
type Decoded struct {
	RealPath string
	Start    float64
	End      float64
	// Synthetic is true when the input path actually carried a
	// flaccuesplit marker; false means RealPath is just path unchanged.
	Synthetic bool
}

// DecodeSynthetic splits path into its backing real path and time window.
// Paths with no Marker in the basename are returned unchanged with
// Synthetic set to false.
func DecodeSynthetic(path string) Decoded {
	dir, base := filepath.Split(path)

	idx := strings.Index(base, Marker)
	if idx < 0 {
		return Decoded{RealPath: path, Synthetic: false}
	}

	stem := base[:idx]
	rest := base[idx+len(Marker):]

	times, ext := splitLastDot(rest)
	if looksLikeTimeFragment(ext) {
		times = times + "." + ext
		ext = ""
	}

	startStr, endStr := splitTimes(times)

	realPath := dir + stem
	if ext != "" {
		realPath += "." + ext
	}

	return Decoded{
		RealPath:  realPath,
		Start:     parseTime(startStr, 0),
		End:       parseTime(endStr, EndSentinel),
		Synthetic: true,
	}
}

// EncodeSynthetic builds the synthetic path addressing [startStr, endStr) of
// realPath. startStr and endStr are carried through verbatim (caller-chosen
// "MM:SS:FF" or "-1" forms) so Decode(Encode(...)) round-trips exactly.
func EncodeSynthetic(realPath, startStr, endStr string) string {
	dir, base := filepath.Split(realPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return fmt.Sprintf("%s%s%s%s.%s%s", dir, stem, Marker, startStr, endStr, ext)
}

// splitLastDot splits s on its final "." into (before, after). If s has no
// dot, after is "".
func splitLastDot(s string) (string, string) {
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return s, ""
	}

	return s[:i], s[i+1:]
}

// splitTimes splits a "<start>.<end>" fragment into its two components.
func splitTimes(times string) (string, string) {
	parts := strings.SplitN(times, ".", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}

	return parts[0], parts[1]
}

// looksLikeTimeFragment reports whether s parses as a bare integer, or
// begins with an integer followed by ":" — the §6 rule for folding a
// misidentified extension back into the time fragment.
func looksLikeTimeFragment(s string) bool {
	if s == "" {
		return false
	}

	if _, err := strconv.Atoi(s); err == nil {
		return true
	}

	colon := strings.Index(s, ":")
	if colon <= 0 {
		return false
	}

	_, err := strconv.Atoi(s[:colon])
	return err == nil
}

// parseTime parses "MM:SS:FF" into fractional seconds. The literal "-1", or
// anything not in that triple form, resolves to fallback — 0 for a start
// token, EndSentinel for an end token, per §4.2.
func parseTime(s string, fallback float64) float64 {
	if s == "-1" {
		return fallback
	}

	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return fallback
	}

	mm, err1 := strconv.Atoi(fields[0])
	ss, err2 := strconv.Atoi(fields[1])
	ff, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}

	return float64(mm)*60 + float64(ss) + float64(ff)/75.0
}

// ParseTimecode parses a bare "MM:SS:FF" cue timecode (not a synthetic path
// fragment) into fractional seconds. ok is false for the literal "-1" or
// anything not in triple form; callers decide the fallback for their
// position (start vs. end), mirroring parseTime above.
func ParseTimecode(s string) (seconds float64, ok bool) {
	if s == "-1" {
		return 0, false
	}

	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return 0, false
	}

	mm, err1 := strconv.Atoi(fields[0])
	ss, err2 := strconv.Atoi(fields[1])
	ff, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	return float64(mm)*60 + float64(ss) + float64(ff)/75.0, true
}

// FormatTimecode renders seconds as a zero-padded "MM:SS:FF" cue timecode.
func FormatTimecode(seconds float64) string {
	totalFrames := int64(seconds*75 + 0.5)
	frames := totalFrames % 75
	totalSeconds := totalFrames / 75
	secs := totalSeconds % 60
	mins := totalSeconds / 60

	return fmt.Sprintf("%02d:%02d:%02d", mins, secs, frames)
}
