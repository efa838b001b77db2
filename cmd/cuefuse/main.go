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

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/spf13/cobra"

	"github.com/flaccuefs/cuefuse/internal/decodecache"
	"github.com/flaccuefs/cuefuse/internal/fsadapter"
	"github.com/flaccuefs/cuefuse/internal/prober"
	"github.com/flaccuefs/cuefuse/internal/transcoder"
)

var (
	idleTimeout   time.Duration
	maxCacheBytes int64
	transcoderBin string
	foreground    bool
	allowOther    bool
)

var rootCmd = &cobra.Command{
	Use:   "cuefuse <root> <mount>",
	Short: "Overlay per-track virtual files onto single-file cue+FLAC albums",
	Long: `cuefuse mounts a read-only FUSE overlay at <mount> that mirrors <root>,
replacing each cue-sheet-described backing file with one virtual file per
track. Opening a virtual track invokes an external transcoder on demand and
serves the decoded bytes; nothing is written back to <root>.`,
	Args: cobra.ExactArgs(2),
	RunE: runMount,
}

func init() {
	rootCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", decodecache.DefaultIdleTimeout,
		"evict a decoded track's buffer once it has no open handles and this long has passed since its last open, read or release")
	rootCmd.Flags().Int64Var(&maxCacheBytes, "max-cache-bytes", 0,
		"evict least-recently-used decoded buffers once their aggregate size exceeds this many bytes (0 = unbounded)")
	rootCmd.Flags().StringVar(&transcoderBin, "transcoder", "ffmpeg",
		"path to the external transcoder binary")
	rootCmd.Flags().BoolVar(&foreground, "foreground", true,
		"run in the foreground (cuefuse always runs in the foreground; false does not daemonize)")
	rootCmd.Flags().BoolVar(&allowOther, "allow-other", true,
		"allow other users to access the mount")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	root, mountpoint := args[0], args[1]

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return fmt.Errorf("cuefuse: root %s is not a directory", root)
	}

	options := []fuse.MountOption{
		fuse.ReadOnly(),
		fuse.FSName("cuefuse"),
		fuse.Subtype("cuefuse"),
	}
	if allowOther {
		options = append(options, fuse.AllowOther())
	}

	conn, err := fuse.Mount(mountpoint, options...)
	if err != nil {
		return fmt.Errorf("cuefuse: mount %s: %w", mountpoint, err)
	}
	defer conn.Close()

	cache := decodecache.New(transcoder.NewFFmpegTranscoder(transcoderBin), idleTimeout, maxCacheBytes)
	cuefs := &fsadapter.FS{
		RootDir: root,
		Cache:   cache,
		Prober:  prober.NewFlacProber(),
		Tags:    prober.NewVorbisTagProber(),
	}

	log.Printf("cuefuse: overlaying %s at %s (idle-timeout=%s, max-cache-bytes=%d)", root, mountpoint, idleTimeout, maxCacheBytes)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- fs.Serve(conn, cuefs)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("cuefuse: serve: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Printf("cuefuse: caught signal %s, unmounting", sig)
		return fuse.Unmount(mountpoint)
	}
}
