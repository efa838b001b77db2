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

// Package prober abstracts over the external collaborators that read
// parameters out of a backing audio file: stream parameters needed for the
// analytic size contract (§4.4), and Vorbis-comment tags used as a fallback
// when a cue sheet's own metadata is sparse.
package prober

// StreamInfo carries the PCM parameters needed to compute the analytic byte
// size of a decoded window (§4.4's size contract).
type StreamInfo struct {
	Channels      int
	BitsPerSample int
	SampleRate    int
	TotalSeconds  float64
}

// Prober reads StreamInfo from a backing audio file.
type Prober interface {
	Probe(path string) (StreamInfo, error)
}

// Tags holds the subset of Vorbis-comment fields this filesystem consults
// when a cue sheet omits album/artist/track metadata.
type Tags struct {
	Artist string
	Album  string
	Title  string
}

// TagProber reads fallback tags directly from a backing audio file.
type TagProber interface {
	ProbeTags(path string) (Tags, error)
}
