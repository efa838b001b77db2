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

package cuesheet

import (
	"os"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Parse reads path and returns its parsed CueSheet. It tries UTF-8 first;
// if the raw bytes are not valid UTF-8 it retries as UTF-16 (the original
// FLACCue scanner's `except UnicodeDecodeError` fallback).
func Parse(path string) (*CueSheet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := decodeText(raw)
	return parseText(path, text)
}

// decodeText returns raw as a string, decoding it as UTF-16 (sniffing a
// byte-order mark, defaulting to little-endian) when it is not valid UTF-8.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	big := false
	switch {
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		raw = raw[2:]
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		raw = raw[2:]
		big = true
	}

	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}

	units := make([]uint16, len(raw)/2)
	for i := range units {
		if big {
			units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
		} else {
			units[i] = uint16(raw[2*i+1])<<8 | uint16(raw[2*i])
		}
	}

	return string(utf16.Decode(units))
}

// parseText runs the indentation grammar described in spec.md §4.1 over the
// already-decoded text of a cue sheet.
func parseText(path, text string) (*CueSheet, error) {
	cue := &CueSheet{Values: map[string]string{}}

	var currentFile *FileSection
	var currentTrack *Track

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent := countLeadingSpaces(line)
		trimmed := strings.TrimLeft(line, " ")

		switch {
		case indent == 0:
			if name, format, ok := parseFileLine(trimmed); ok {
				currentFile = &FileSection{Name: name, Format: format, Values: map[string]string{}}
				cue.Files = append(cue.Files, currentFile)
				currentTrack = nil
				continue
			}

			key, value := splitDirective(trimmed)
			if key != "" {
				cue.Values[key] = value
			}

		case indent < 4:
			if currentFile == nil {
				if strings.HasPrefix(strings.ToUpper(trimmed), "TRACK") {
					return nil, &ParseError{Path: path, Line: i + 1, Msg: "TRACK before any FILE"}
				}
				continue
			}

			if num, ok := parseTrackLine(trimmed); ok {
				currentTrack = &Track{Number: num, Values: map[string]string{}, Indexes: map[int]string{}}
				currentFile.Tracks = append(currentFile.Tracks, currentTrack)
				continue
			}

			key, value := splitDirective(trimmed)
			if key != "" {
				currentFile.Values[key] = value
			}

		default:
			if currentTrack == nil {
				continue
			}

			if idx, timecode, ok := parseIndexLine(trimmed); ok {
				currentTrack.Indexes[idx] = timecode
				continue
			}

			key, value := splitDirective(trimmed)
			if key != "" {
				currentTrack.Values[key] = value
			}
		}
	}

	if len(cue.Files) > 0 && len(cue.Files[0].Tracks) > 0 {
		if _, ok := cue.Files[0].Tracks[0].Index(1); !ok {
			return nil, &ParseError{Path: path, Line: len(lines), Msg: "INDEX 01 missing for first track of first file"}
		}
	}

	return cue, nil
}

func countLeadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}

	return n
}

// splitDirective splits a directive line into its first token (the key) and
// the remainder of the line with surrounding quotes stripped.
func splitDirective(line string) (string, string) {
	fields := strings.SplitN(line, " ", 2)
	key := strings.ToUpper(strings.TrimSpace(fields[0]))
	if key == "" {
		return "", ""
	}

	value := ""
	if len(fields) > 1 {
		value = unquote(strings.TrimSpace(fields[1]))
	}

	return key, value
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}

// parseFileLine matches `FILE "<name>" <fmt>`.
func parseFileLine(line string) (name, format string, ok bool) {
	if !strings.HasPrefix(strings.ToUpper(line), "FILE") {
		return "", "", false
	}

	rest := strings.TrimSpace(line[len("FILE"):])
	if len(rest) == 0 || rest[0] != '"' {
		return "", "", false
	}

	end := strings.Index(rest[1:], `"`)
	if end < 0 {
		return "", "", false
	}

	name = rest[1 : end+1]
	format = strings.TrimSpace(rest[end+2:])

	return name, format, true
}

// parseTrackLine matches `TRACK <n> <type>`.
func parseTrackLine(line string) (int, bool) {
	if !strings.HasPrefix(strings.ToUpper(line), "TRACK") {
		return 0, false
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, false
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}

	return n, true
}

// parseIndexLine matches `INDEX <i> <time>`.
func parseIndexLine(line string) (int, string, bool) {
	if !strings.HasPrefix(strings.ToUpper(line), "INDEX") {
		return 0, "", false
	}

	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, "", false
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, "", false
	}

	return n, fields[2], true
}
