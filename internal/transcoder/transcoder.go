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

// Package transcoder invokes an external decoder to materialise a PCM WAV
// byte buffer for a time window of a backing audio file. The decoder itself
// is deliberately out of core scope; this package only shells out to it.
package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrFFmpegNotFound is returned when the configured ffmpeg binary cannot be
// located on PATH.
var ErrFFmpegNotFound = errors.New("transcoder: ffmpeg not found")

// Meta is the per-track metadata passed through to the decoder so it can
// tag the produced stream, mirroring the (artist, album, disc, track,
// title) tuple carried by a VirtualTrack.
type Meta struct {
	Artist string
	Album  string
	Disc   int
	Track  int
	Title  string
}

// Transcoder produces a WAV byte buffer for [start, end) seconds of
// inputPath. A single operation, pluggable per the design notes on dynamic
// dispatch, so tests can substitute a mock that counts invocations.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string, start, end float64, meta Meta) ([]byte, error)
}

// TranscodeError wraps a failed external decoder invocation with its exit
// code and captured stderr.
type TranscodeError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *TranscodeError) Error() string {
	if e.ExitCode != 0 {
		return fmt.Sprintf("transcoder: ffmpeg exited %d: %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("transcoder: %v", e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// FFmpegTranscoder shells out to ffmpeg, seeking to start and decoding
// (end - start) seconds of PCM WAV audio to stdout.
type FFmpegTranscoder struct {
	// BinPath is the ffmpeg executable; defaults to "ffmpeg" on PATH.
	BinPath string
}

// NewFFmpegTranscoder returns a Transcoder invoking binPath, or "ffmpeg"
// from PATH if binPath is empty.
func NewFFmpegTranscoder(binPath string) *FFmpegTranscoder {
	if binPath == "" {
		binPath = "ffmpeg"
	}

	return &FFmpegTranscoder{BinPath: binPath}
}

// Transcode runs ffmpeg with an input seek and an explicit duration, writing
// raw WAV bytes to stdout and capturing stderr for diagnostics on failure.
func (t *FFmpegTranscoder) Transcode(ctx context.Context, inputPath string, start, end float64, meta Meta) ([]byte, error) {
	if _, err := exec.LookPath(t.BinPath); err != nil {
		return nil, ErrFFmpegNotFound
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.6f", start),
	}

	if end > 0 {
		args = append(args, "-t", fmt.Sprintf("%.6f", end-start))
	}

	args = append(args,
		"-i", inputPath,
		"-map_metadata", "-1",
		"-metadata", "artist="+meta.Artist,
		"-metadata", "album="+meta.Album,
		"-metadata", "title="+meta.Title,
		"-metadata", fmt.Sprintf("track=%d", meta.Track),
		"-metadata", fmt.Sprintf("disc=%d", meta.Disc),
		"-f", "wav",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, t.BinPath, args...)
	cmd.Stdin = nil

	stderr, err := os.CreateTemp("", "cuefuse-ffmpeg-*.log")
	if err != nil {
		return nil, fmt.Errorf("transcoder: stage stderr capture: %w", err)
	}
	defer os.Remove(stderr.Name())
	defer stderr.Close()

	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		stderrBytes, _ := os.ReadFile(stderr.Name())

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &TranscodeError{ExitCode: exitErr.ExitCode(), Stderr: string(stderrBytes), Err: err}
		}

		return nil, &TranscodeError{Err: err}
	}

	return out, nil
}
