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

package transcoder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFFmpegTranscoder_DefaultsBinPath(t *testing.T) {
	tc := NewFFmpegTranscoder("")
	assert.Equal(t, "ffmpeg", tc.BinPath)
}

func TestFFmpegTranscoder_MissingBinary(t *testing.T) {
	tc := NewFFmpegTranscoder("cuefuse-definitely-not-a-real-binary")

	_, err := tc.Transcode(context.Background(), "input.flac", 0, 10, Meta{Title: "x"})
	assert.ErrorIs(t, err, ErrFFmpegNotFound)
}

func TestTranscodeError_Error(t *testing.T) {
	err := &TranscodeError{ExitCode: 1, Stderr: "boom"}
	assert.Contains(t, err.Error(), "boom")

	wrapped := &TranscodeError{Err: errors.New("spawn failed")}
	assert.Contains(t, wrapped.Error(), "spawn failed")
	assert.ErrorIs(t, wrapped, wrapped.Err)
}
