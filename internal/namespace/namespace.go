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

// Package namespace derives the set of virtual per-track filenames (and the
// backing filenames they hide) that a directory containing cue sheets
// should expose, by combining internal/cuesheet with internal/pathcodec.
package namespace

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/flaccuefs/cuefuse/internal/cuesheet"
	"github.com/flaccuefs/cuefuse/internal/pathcodec"
	"github.com/flaccuefs/cuefuse/internal/prober"
)

// VirtualTrack is one synthesized per-track file.
type VirtualTrack struct {
	// SyntheticName is the basename exposed in directory listings.
	SyntheticName string
	// BackingPath is the absolute path of the real audio file it slices.
	BackingPath string
	// StartStr/EndStr are the raw cue timecodes (or "-1"), used to build
	// the encoded synthetic path.
	StartStr, EndStr string
	Start, End       float64
	Artist, Album    string
	Disc, TrackNum   int
	Title            string
}

// SyntheticPath returns the pathcodec-encoded path for this track.
func (v *VirtualTrack) SyntheticPath() string {
	return pathcodec.EncodeSynthetic(v.BackingPath, v.StartStr, v.EndStr)
}

// Expansion is the result of expanding one directory's cue sheets.
type Expansion struct {
	// Add maps synthetic basename -> VirtualTrack.
	Add map[string]*VirtualTrack
	// Hide is the set of backing basenames to remove from listings.
	Hide map[string]bool
}

func newExpansion() *Expansion {
	return &Expansion{Add: map[string]*VirtualTrack{}, Hide: map[string]bool{}}
}

// ExpandDirectory implements §4.3: list dir, parse every *.cue entry, and
// for each FileSection whose backing file exists on disk, derive its
// VirtualTracks. A malformed sheet is skipped, not fatal — errs collects one
// entry per cue that failed to parse, for logging. A FileSection whose backing
// file is missing is skipped silently and adds nothing to errs.
func ExpandDirectory(dir string, tags prober.TagProber) (*Expansion, []error) {
	exp := newExpansion()
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return exp, []error{err}
	}

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".cue") {
			continue
		}

		cuePath := filepath.Join(dir, e.Name())
		sheet, err := cuesheet.Parse(cuePath)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		expandSheet(dir, sheet, tags, exp)
	}

	return exp, errs
}

func expandSheet(dir string, sheet *cuesheet.CueSheet, tags prober.TagProber, exp *Expansion) {
	album := sheet.Title()
	artist := albumArtist(sheet)

	for _, file := range sheet.Files {
		backingPath := filepath.Join(dir, file.Name)
		if _, err := os.Stat(backingPath); err != nil {
			continue // MissingBackingFile: silently skip this FileSection.
		}

		disc := deriveDiscNumber(file.Name)

		fileArtist := artist
		fileAlbum := album
		if tags != nil && (fileArtist == "" || fileAlbum == "") {
			if t, err := tags.ProbeTags(backingPath); err == nil {
				if fileArtist == "" {
					fileArtist = t.Artist
				}
				if fileAlbum == "" {
					fileAlbum = t.Album
				}
			}
		}
		if fileArtist == "" {
			fileArtist = "Unknown"
		}
		if fileAlbum == "" {
			fileAlbum = "Unknown"
		}

		prevEnd := "00:00:00"
		for i, track := range file.Tracks {
			startStr, ok := track.Index(1)
			if !ok {
				startStr = prevEnd
			}

			endStr := "-1"
			if i+1 < len(file.Tracks) {
				if next, ok := file.Tracks[i+1].Index(1); ok {
					endStr = next
				}
			}
			prevEnd = endStr

			title := track.Title()
			if title == "" && tags != nil {
				if t, err := tags.ProbeTags(backingPath); err == nil && t.Title != "" {
					title = t.Title
				}
			}
			if title == "" {
				title = "Unknown"
			}

			vt := &VirtualTrack{
				BackingPath: backingPath,
				StartStr:    startStr,
				EndStr:      endStr,
				Start:       resolveSeconds(startStr, 0),
				End:         resolveSeconds(endStr, pathcodec.EndSentinel),
				Artist:      fileArtist,
				Album:       fileAlbum,
				Disc:        disc,
				TrackNum:    track.Number,
				Title:       title,
			}
			vt.SyntheticName = syntheticFilename(vt)

			exp.Add[vt.SyntheticName] = vt
		}

		exp.Hide[file.Name] = true
	}
}

func resolveSeconds(s string, fallback float64) float64 {
	if seconds, ok := pathcodec.ParseTimecode(s); ok {
		return seconds
	}

	return fallback
}

// albumArtist implements §4.3 point 3: album PERFORMER, else track 1 of the
// first FileSection's PERFORMER, else "Unknown" (applied by the caller).
func albumArtist(sheet *cuesheet.CueSheet) string {
	if p := sheet.Performer(); p != "" {
		return p
	}

	if len(sheet.Files) > 0 && len(sheet.Files[0].Tracks) > 0 {
		return sheet.Files[0].Tracks[0].Performer()
	}

	return ""
}

// deriveDiscNumber inspects the final two whitespace-separated tokens of
// name's stem. If they are the literal "Disc" and an integer, that integer;
// otherwise 1. Best-effort per the design notes: never errors.
func deriveDiscNumber(name string) int {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	fields := strings.Fields(stem)
	if len(fields) < 2 {
		return 1
	}

	last2 := fields[len(fields)-2]
	last1 := fields[len(fields)-1]
	if last2 != "Disc" {
		return 1
	}

	n, err := strconv.Atoi(last1)
	if err != nil {
		return 1
	}

	return n
}

// syntheticFilename builds the "{artist} - {album} - {disc}{track:02}  {title}.wav"
// name, replacing forward slashes with spaces.
func syntheticFilename(vt *VirtualTrack) string {
	name := vt.Artist + " - " + vt.Album + " - " + strconv.Itoa(vt.Disc) +
		twoDigits(vt.TrackNum) + "  " + vt.Title + ".wav"

	return strings.ReplaceAll(name, "/", " ")
}

func twoDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}

	return s
}

// FindVirtual resolves an arbitrary path that does not exist on disk by
// expanding its parent directory's cue sheets and checking whether the
// basename is one of the produced synthetic names.
func FindVirtual(path string, tags prober.TagProber) (*VirtualTrack, bool) {
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)

	exp, _ := ExpandDirectory(dir, tags)

	vt, ok := exp.Add[base]
	return vt, ok
}

// SortedNames returns the synthetic names of an Expansion in a stable order,
// useful for deterministic directory listings and tests.
func (e *Expansion) SortedNames() []string {
	names := make([]string, 0, len(e.Add))
	for name := range e.Add {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}
