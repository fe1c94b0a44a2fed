//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package debugfs snapshots kernel-object bookkeeping (live arena objects,
// CapNode occupancy) into an in-memory filesystem, the way a real kernel
// exposes a debugfs tree for an operator to inspect without stopping the
// system. Nothing in this module ever reads it back; it exists purely as an
// introspection side channel.
package debugfs

import (
	"fmt"
	"strconv"

	"github.com/spf13/afero"

	"github.com/MORK-core/mork-syscall/arena"
	"github.com/MORK-core/mork-syscall/cspace"
)

// FS is a debugfs-style snapshot tree, backed by an in-memory filesystem
// rather than a real kernel VFS mount.
type FS struct {
	fs afero.Fs
}

// New returns an empty debugfs tree rooted at /mork.
func New() *FS {
	return &FS{fs: afero.NewMemMapFs()}
}

// SnapshotArena writes one file per live arena entry under
// /mork/arena/<base_ptr>, containing the Go type name of the object
// registered there.
func (d *FS) SnapshotArena(reg *arena.Registry, basePtrs []uint64) error {
	if err := d.fs.MkdirAll("/mork/arena", 0o755); err != nil {
		return fmt.Errorf("debugfs: mkdir arena: %w", err)
	}
	for _, bp := range basePtrs {
		obj, ok := reg.Get(bp)
		if !ok {
			continue
		}
		path := "/mork/arena/" + strconv.FormatUint(bp, 10)
		content := fmt.Sprintf("%T\n", obj)
		if err := afero.WriteFile(d.fs, path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("debugfs: write %s: %w", path, err)
		}
	}
	return nil
}

// SnapshotCSpace writes /mork/cspace/<name>/occupancy, one line per slot:
// "used" or "free".
func (d *FS) SnapshotCSpace(name string, cn *cspace.CapNode) error {
	dir := "/mork/cspace/" + name
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("debugfs: mkdir %s: %w", dir, err)
	}
	path := dir + "/occupancy"
	f, err := d.fs.Create(path)
	if err != nil {
		return fmt.Errorf("debugfs: create %s: %w", path, err)
	}
	defer f.Close()
	for i := 0; i < cn.Size(); i++ {
		line := "free\n"
		if cn.IsUsed(i) {
			line = "used\n"
		}
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("debugfs: write %s: %w", path, err)
		}
	}
	return nil
}

// ReadFile returns the contents of a previously written snapshot file, for
// tests and operator tooling that want to assert on the tree's shape.
func (d *FS) ReadFile(path string) (string, error) {
	b, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
