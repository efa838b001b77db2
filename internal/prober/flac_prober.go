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

	"github.com/mewkiz/flac"
)

// FlacProber reads stream parameters with mewkiz/flac, the library every
// FLAC-touching repo in the reference pack uses for this.
type FlacProber struct{}

// NewFlacProber returns a Prober backed by mewkiz/flac.
func NewFlacProber() *FlacProber { return &FlacProber{} }

// Probe opens path, reads its StreamInfo block, and closes it again. It
// never decodes audio frames; duration is derived from NSamples/SampleRate.
func (p *FlacProber) Probe(path string) (StreamInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("prober: open %s: %w", path, err)
	}
	defer stream.Close()

	info := stream.Info
	if info.SampleRate == 0 {
		return StreamInfo{}, fmt.Errorf("prober: %s: unknown sample rate", path)
	}

	return StreamInfo{
		Channels:      int(info.NChannels),
		BitsPerSample: int(info.BitsPerSample),
		SampleRate:    int(info.SampleRate),
		TotalSeconds:  float64(info.NSamples) / float64(info.SampleRate),
	}, nil
}
