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

// Package fsadapter translates bazil.org/fuse upcalls (getattr, readdir,
// open, read, release, readlink, statfs) into operations on the cue
// namespace and decode cache, per §4.5.
package fsadapter

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/flaccuefs/cuefuse/internal/decodecache"
	"github.com/flaccuefs/cuefuse/internal/namespace"
	"github.com/flaccuefs/cuefuse/internal/prober"
	"github.com/flaccuefs/cuefuse/internal/transcoder"
)

// FS is the root of the overlaid filesystem. All incoming paths are
// pre-joined to RootDir.
type FS struct {
	RootDir string
	Cache   *decodecache.Cache
	Prober  prober.Prober
	Tags    prober.TagProber
}

var _ fs.FS = (*FS)(nil)
var _ fs.FSStatfser = (*FS)(nil)

// Root returns the node for RootDir itself.
func (f *FS) Root() (fs.Node, error) {
	return &dirNode{fs: f, realDir: f.RootDir}, nil
}

// Statfs delegates to the host filesystem's statvfs on RootDir.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	var st syscall.Statfs_t
	if err := syscall.Statfs(f.RootDir, &st); err != nil {
		return err
	}

	resp.Blocks = st.Blocks
	resp.Bfree = st.Bfree
	resp.Bavail = st.Bavail
	resp.Files = st.Files
	resp.Ffree = st.Ffree
	resp.Bsize = uint32(st.Bsize)
	resp.Namelen = 255
	resp.Frsize = uint32(st.Bsize)

	return nil
}

// dirNode is a real directory in the overlaid tree.
type dirNode struct {
	fs      *FS
	realDir string
}

var _ fs.Node = (*dirNode)(nil)
var _ fs.NodeStringLookuper = (*dirNode)(nil)
var _ fs.HandleReadDirAller = (*dirNode)(nil)

func (d *dirNode) Attr(ctx context.Context, a *fuse.Attr) error {
	return statAttr(d.realDir, a)
}

func (d *dirNode) expand() *namespace.Expansion {
	exp, errs := namespace.ExpandDirectory(d.realDir, d.fs.Tags)
	for _, err := range errs {
		log.Printf("cuefuse: expand %s: %v", d.realDir, err)
	}

	return exp
}

// Lookup resolves name within this directory: a real file or subdirectory
// first, then a virtual track name, per findVirtual (§4.3).
func (d *dirNode) Lookup(ctx context.Context, name string) (fs.Node, error) {
	exp := d.expand()

	realPath := filepath.Join(d.realDir, name)
	if info, err := os.Lstat(realPath); err == nil {
		if exp.Hide[name] {
			return nil, fuse.ENOENT
		}
		if info.IsDir() {
			return &dirNode{fs: d.fs, realDir: realPath}, nil
		}

		return &fileNode{fs: d.fs, realPath: realPath}, nil
	}

	if vt, ok := exp.Add[name]; ok {
		return &trackNode{fs: d.fs, vt: vt}, nil
	}

	return nil, fuse.ENOENT
}

// ReadDirAll lists the real directory with referenced backing files hidden
// and virtual track names appended, per §4.3/§4.5.
func (d *dirNode) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := os.ReadDir(d.realDir)
	if err != nil {
		return nil, err
	}

	exp := d.expand()

	dirents := make([]fuse.Dirent, 0, len(entries)+len(exp.Add))
	for _, e := range entries {
		if exp.Hide[e.Name()] {
			continue
		}

		typ := fuse.DT_File
		if e.IsDir() {
			typ = fuse.DT_Dir
		}

		dirents = append(dirents, fuse.Dirent{Name: e.Name(), Type: typ})
	}

	for name := range exp.Add {
		dirents = append(dirents, fuse.Dirent{Name: name, Type: fuse.DT_File})
	}

	return dirents, nil
}

// fileNode is a real, non-virtual file passed through unchanged.
type fileNode struct {
	fs       *FS
	realPath string
}

var _ fs.Node = (*fileNode)(nil)
var _ fs.NodeOpener = (*fileNode)(nil)
var _ fs.NodeReadlinker = (*fileNode)(nil)

func (n *fileNode) Attr(ctx context.Context, a *fuse.Attr) error {
	return statAttr(n.realPath, a)
}

func (n *fileNode) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if !req.Flags.IsReadOnly() {
		return nil, fuse.EPERM
	}

	f, err := os.Open(n.realPath)
	if err != nil {
		return nil, err
	}

	return &fileHandle{f: f}, nil
}

func (n *fileNode) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	return os.Readlink(n.realPath)
}

type fileHandle struct {
	f *os.File
}

var _ fs.HandleReader = (*fileHandle)(nil)
var _ fs.HandleReleaser = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.f.ReadAt(buf, req.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	resp.Data = buf[:n]
	return nil
}

func (h *fileHandle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return h.f.Close()
}

// trackNode is a synthesized per-track file backed by a decode-cache entry.
type trackNode struct {
	fs *FS
	vt *namespace.VirtualTrack
}

var _ fs.Node = (*trackNode)(nil)
var _ fs.NodeOpener = (*trackNode)(nil)

func (n *trackNode) Attr(ctx context.Context, a *fuse.Attr) error {
	if err := statAttr(n.vt.BackingPath, a); err != nil {
		return err
	}

	a.Mode = 0o444

	if n.fs.Prober != nil {
		if info, err := n.fs.Prober.Probe(n.vt.BackingPath); err == nil {
			a.Size = uint64(decodecache.ComputeSize(info, n.vt.Start, n.vt.End))
		}
	}

	return nil
}

func (n *trackNode) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if !req.Flags.IsReadOnly() {
		return nil, fuse.EPERM
	}

	meta := transcoder.Meta{
		Artist: n.vt.Artist,
		Album:  n.vt.Album,
		Disc:   n.vt.Disc,
		Track:  n.vt.TrackNum,
		Title:  n.vt.Title,
	}

	handle, err := n.fs.Cache.OpenEntry(ctx, n.vt.SyntheticPath(), n.vt.BackingPath, n.vt.Start, n.vt.End, meta)
	if err != nil {
		return nil, err
	}

	return &trackHandle{fs: n.fs, rawPath: n.vt.SyntheticPath(), handle: handle}, nil
}

type trackHandle struct {
	fs      *FS
	rawPath string
	handle  uint64
}

var _ fs.HandleReader = (*trackHandle)(nil)
var _ fs.HandleReleaser = (*trackHandle)(nil)

func (h *trackHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	data, err := h.fs.Cache.ReadEntry(h.rawPath, h.handle, req.Size, req.Offset)
	if err != nil {
		return err
	}

	resp.Data = data
	return nil
}

func (h *trackHandle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return h.fs.Cache.ReleaseEntry(h.rawPath, h.handle)
}

func statAttr(path string, a *fuse.Attr) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}

	a.Mode = info.Mode()
	a.Size = uint64(info.Size())
	a.Mtime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Atime = time.Now()

	return nil
}
