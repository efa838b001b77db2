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

// Package cuesheet parses CUE sheet files into a structured album
// description. The grammar is indentation-sensitive rather than
// directive-specific: album, file, and track level lines each store an
// arbitrary first-token/remainder pair, so unfamiliar REM fields and vendor
// extensions survive the parse instead of being dropped.
package cuesheet

import "fmt"

// CueSheet is the parsed form of one cue file.
type CueSheet struct {
	// Values holds album-level tagged values (TITLE, PERFORMER, REM, ...).
	Values map[string]string
	// Files are the FileSections in the order they appeared.
	Files []*FileSection
}

// FileSection is one `FILE "name" fmt` block and its tracks.
type FileSection struct {
	Name   string
	Format string
	Values map[string]string
	Tracks []*Track
}

// Track is one `TRACK n type` block.
type Track struct {
	Number  int
	Values  map[string]string
	Indexes map[int]string // index number -> "MM:SS:FF"
}

// Title returns the album TITLE, or "" if absent.
func (c *CueSheet) Title() string { return c.Values["TITLE"] }

// Performer returns the album PERFORMER, or "" if absent.
func (c *CueSheet) Performer() string { return c.Values["PERFORMER"] }

// Title returns the track TITLE, or "" if absent.
func (t *Track) Title() string { return t.Values["TITLE"] }

// Performer returns the track PERFORMER, or "" if absent.
func (t *Track) Performer() string { return t.Values["PERFORMER"] }

// Index returns the time code stored for index n, and whether it was present.
func (t *Track) Index(n int) (string, bool) {
	v, ok := t.Indexes[n]
	return v, ok
}

// ParseError reports a malformed cue sheet: a TRACK directive at file-level
// indentation encountered before any FILE, or a first track of the first FILE
// with no INDEX 01. Indentation itself is not validated: lines are bucketed by
// leading-space count (0, 1-3, 4 or more) and never rejected.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cuesheet: %s:%d: %s", e.Path, e.Line, e.Msg)
}
