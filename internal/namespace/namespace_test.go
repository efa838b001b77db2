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

package namespace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTrackSheet = `PERFORMER "The Band"
TITLE "A Fine Album"
FILE "A.flac" WAVE
  TRACK 01 AUDIO
    TITLE "First Song"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    INDEX 01 03:14:17
`

func writeAlbum(t *testing.T, sheet string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.cue"), []byte(sheet), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.flac"), []byte("fake-flac-bytes"), 0o644))
	return dir
}

func TestExpandDirectory_TwoTrackAlbum(t *testing.T) {
	dir := writeAlbum(t, twoTrackSheet)

	exp, errs := ExpandDirectory(dir, nil)
	assert.Empty(t, errs)
	assert.True(t, exp.Hide["A.flac"])
	assert.Len(t, exp.Add, 2)

	names := exp.SortedNames()
	require.Len(t, names, 2)

	first := exp.Add[names[0]]
	assert.Equal(t, "The Band", first.Artist)
	assert.Equal(t, "A Fine Album", first.Album)
	assert.Equal(t, 1, first.Disc)
}

func TestExpandDirectory_MissingBackingFileSkipsSection(t *testing.T) {
	dir := t.TempDir()
	sheet := `FILE "Missing.flac" WAVE
  TRACK 01 AUDIO
    INDEX 01 00:00:00
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "X.cue"), []byte(sheet), 0o644))

	exp, errs := ExpandDirectory(dir, nil)
	assert.Empty(t, errs)
	assert.Empty(t, exp.Add)
	assert.Empty(t, exp.Hide)
}

func TestDeriveDiscNumber(t *testing.T) {
	assert.Equal(t, 2, deriveDiscNumber("Artist - Album Disc 2.flac"))
	assert.Equal(t, 1, deriveDiscNumber("Artist - Album.flac"))
	assert.Equal(t, 1, deriveDiscNumber("Disc Two.flac"))
}

func TestSyntheticFilename_SlashesReplaced(t *testing.T) {
	vt := &VirtualTrack{Artist: "A/B", Album: "Alb", Disc: 1, TrackNum: 3, Title: "T/1"}
	name := syntheticFilename(vt)

	assert.NotContains(t, name, "/")
	assert.Contains(t, name, "03")
}

func TestFindVirtual(t *testing.T) {
	dir := writeAlbum(t, twoTrackSheet)

	exp, _ := ExpandDirectory(dir, nil)
	names := exp.SortedNames()
	require.NotEmpty(t, names)

	vt, ok := FindVirtual(filepath.Join(dir, names[0]), nil)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "A.flac"), vt.BackingPath)
}
