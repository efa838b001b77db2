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

package prober

import (
	"fmt"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// VorbisTagProber reads Vorbis-comment tags straight off a backing FLAC
// file, the way the teacher's writeFlacTags locates the existing comment
// block before editing it — here used read-only, as a metadata fallback
// source when a cue sheet leaves PERFORMER/TITLE blank.
type VorbisTagProber struct{}

// NewVorbisTagProber returns a TagProber backed by go-flac and flacvorbis.
func NewVorbisTagProber() *VorbisTagProber { return &VorbisTagProber{} }

// ProbeTags returns whatever ARTIST/ALBUM/TITLE comments are present. A
// file with no Vorbis comment block returns a zero Tags and no error.
func (p *VorbisTagProber) ProbeTags(path string) (Tags, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return Tags{}, fmt.Errorf("prober: open %s: %w", path, err)
	}

	var block *flac.MetaDataBlock
	for _, m := range f.Meta {
		if m.Type == flac.VorbisComment {
			block = m
			break
		}
	}
	if block == nil {
		return Tags{}, nil
	}

	comment, err := flacvorbis.ParseFromMetaDataBlock(*block)
	if err != nil {
		return Tags{}, fmt.Errorf("prober: parse vorbis comment in %s: %w", path, err)
	}

	return Tags{
		Artist: firstTag(comment, flacvorbis.FIELD_ARTIST),
		Album:  firstTag(comment, flacvorbis.FIELD_ALBUM),
		Title:  firstTag(comment, flacvorbis.FIELD_TITLE),
	}, nil
}

func firstTag(comment *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := comment.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}

	return values[0]
}
