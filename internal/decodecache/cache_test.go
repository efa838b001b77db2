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

package decodecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flaccuefs/cuefuse/internal/prober"
	"github.com/flaccuefs/cuefuse/internal/transcoder"
)

// countingTranscoder counts invocations and optionally fails the first N.
type countingTranscoder struct {
	calls     int64
	failTimes int64
	buf       []byte
}

func (t *countingTranscoder) Transcode(ctx context.Context, inputPath string, start, end float64, meta transcoder.Meta) ([]byte, error) {
	n := atomic.AddInt64(&t.calls, 1)
	if n <= atomic.LoadInt64(&t.failTimes) {
		return nil, errors.New("mock decode failure")
	}

	return t.buf, nil
}

func TestOpenEntry_ConcurrentFirstOpensDecodeOnce(t *testing.T) {
	tc := &countingTranscoder{buf: make([]byte, 1024)}
	cache := New(tc, time.Hour, 0)

	const n = 20
	var wg sync.WaitGroup
	handles := make([]uint64, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := cache.OpenEntry(context.Background(), "track1.flaccuesplit.00:00:00.-1.wav", "real.flac", 0, 10, transcoder.Meta{})
			handles[i] = h
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&tc.calls))
	assert.Equal(t, 1, cache.Len())

	seen := map[uint64]bool{}
	for _, h := range handles {
		assert.False(t, seen[h], "handles must be distinct")
		seen[h] = true
	}
}

func TestOpenEntry_DecodeFailureThenRetry(t *testing.T) {
	tc := &countingTranscoder{buf: []byte("ok"), failTimes: 1}
	cache := New(tc, time.Hour, 0)

	_, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecodeFailed)
	assert.Equal(t, 0, cache.Len())

	h, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	data, err := cache.ReadEntry("X", h, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

func TestReadEntry_InterleavedHandlesIndependentOffsets(t *testing.T) {
	tc := &countingTranscoder{buf: []byte("0123456789")}
	cache := New(tc, time.Hour, 0)

	h1, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	h2, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)

	b1, err := cache.ReadEntry("X", h1, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "012", string(b1))

	b2, err := cache.ReadEntry("X", h2, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, "567", string(b2))

	b1b, err := cache.ReadEntry("X", h1, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, "3456789", string(b1b)) // clamped to buffer end
}

func TestIdleEviction(t *testing.T) {
	tc := &countingTranscoder{buf: []byte("data")}
	cache := New(tc, 20*time.Millisecond, 0)
	cache.pollInterval = 5 * time.Millisecond

	h, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	require.NoError(t, cache.ReleaseEntry("X", h))

	require.Eventually(t, func() bool {
		return cache.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestIdleEviction_RefusedWhileOpen(t *testing.T) {
	tc := &countingTranscoder{buf: []byte("data")}
	cache := New(tc, 20*time.Millisecond, 0)
	cache.pollInterval = 5 * time.Millisecond

	_, err := cache.OpenEntry(context.Background(), "X", "X.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, cache.Len(), "open-count > 0 must block eviction")
}

func TestOpenEntry_MaxBytesEvictsLeastRecentlyUsed(t *testing.T) {
	tc := &countingTranscoder{buf: make([]byte, 10)}
	cache := New(tc, time.Hour, 25)

	h1, err := cache.OpenEntry(context.Background(), "A", "A.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	require.NoError(t, cache.ReleaseEntry("A", h1))

	h2, err := cache.OpenEntry(context.Background(), "B", "B.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	require.NoError(t, cache.ReleaseEntry("B", h2))

	// Aggregate so far: 20 bytes, under the 25-byte cap. A third entry
	// would push it to 30, over the cap, so the least-recently-accessed
	// entry ("A") must be evicted to make room.
	h3, err := cache.OpenEntry(context.Background(), "C", "C.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	require.NoError(t, cache.ReleaseEntry("C", h3))

	assert.Equal(t, 2, cache.Len())
	assert.LessOrEqual(t, cache.AggregateBytes(), int64(25))

	_, err = cache.ReadEntry("A", h1, 1, 0)
	assert.ErrorIs(t, err, ErrNoSuchEntry, "A must have been evicted to respect the aggregate-bytes cap")

	_, err = cache.ReadEntry("B", h2, 1, 0)
	assert.NoError(t, err, "B was more recently accessed than A and must survive")
}

func TestOpenEntry_MaxBytesNeverEvictsOpenEntry(t *testing.T) {
	tc := &countingTranscoder{buf: make([]byte, 10)}
	cache := New(tc, time.Hour, 15)

	h1, err := cache.OpenEntry(context.Background(), "A", "A.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)
	// A is left open (no ReleaseEntry): its open-count stays positive, so
	// it must never be evicted to make room for B even though it is older.

	h2, err := cache.OpenEntry(context.Background(), "B", "B.flac", 0, 10, transcoder.Meta{})
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())

	_, err = cache.ReadEntry("A", h1, 1, 0)
	assert.NoError(t, err, "A is still open and must not be evicted")

	require.NoError(t, cache.ReleaseEntry("A", h1))
	require.NoError(t, cache.ReleaseEntry("B", h2))
}

func TestComputeSize(t *testing.T) {
	info := prober.StreamInfo{Channels: 2, BitsPerSample: 16, SampleRate: 44100, TotalSeconds: 300}
	size := ComputeSize(info, 0, 180)
	assert.EqualValues(t, 31752000, size)
}
