/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package buildinfo persists engine snapshot state between processes,
// so a CLI invocation can skip units unchanged since the last run.
//
// Only unit identities and version tokens are stored, not content; a
// restored snapshot relies on its token for the identity check.
package buildinfo

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"bennypowers.dev/tsb/engine"
	"bennypowers.dev/tsb/fs"
)

// FormatVersion identifies the on-disk layout. A file with a different
// version is ignored and the build starts cold.
const FormatVersion = 1

// fileRecord is one persisted unit snapshot.
type fileRecord struct {
	Path    string `msgpack:"path"`
	Length  int    `msgpack:"length"`
	Version string `msgpack:"version"`
}

// buildInfo is the persisted document.
type buildInfo struct {
	FormatVersion int                   `msgpack:"formatVersion"`
	Files         map[string]fileRecord `msgpack:"files"`
}

// Save writes the engine's committed snapshots to path.
func Save(osfs fs.FileSystem, path string, snaps map[string]engine.Snapshot) error {
	info := buildInfo{
		FormatVersion: FormatVersion,
		Files:         make(map[string]fileRecord, len(snaps)),
	}
	for id, snap := range snaps {
		info.Files[id] = fileRecord{
			Path:    snap.Display,
			Length:  snap.Length,
			Version: snap.Version,
		}
	}

	data, err := msgpack.Marshal(&info)
	if err != nil {
		return fmt.Errorf("encoding build info: %w", err)
	}
	if err := osfs.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing build info %s: %w", path, err)
	}
	return nil
}

// Load reads persisted snapshots from path. A missing file or an
// unrecognized format version is not an error: both return nil
// snapshots and the build starts cold.
func Load(osfs fs.FileSystem, path string) (map[string]engine.Snapshot, error) {
	data, err := osfs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading build info %s: %w", path, err)
	}

	var info buildInfo
	if err := msgpack.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding build info %s: %w", path, err)
	}
	if info.FormatVersion != FormatVersion {
		return nil, nil
	}

	snaps := make(map[string]engine.Snapshot, len(info.Files))
	for id, rec := range info.Files {
		snaps[id] = engine.Snapshot{
			Display: rec.Path,
			Length:  rec.Length,
			Version: rec.Version,
		}
	}
	return snaps, nil
}
