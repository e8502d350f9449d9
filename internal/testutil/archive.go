// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

// TarEntry describes one member of an archive built by BuildTarball.
// A zero Type means a regular file; Mode defaults to 0o644 for files and
// 0o755 for directories.
type TarEntry struct {
	Name     string
	Body     string
	Mode     int64
	Type     byte
	Linkname string
}

// BuildTarball encodes entries, in order, as a tar stream and gzips it when
// compress is true.
func BuildTarball(t testing.TB, compress bool, entries ...TarEntry) []byte {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.Name,
			Mode:     e.Mode,
			Typeflag: e.Type,
			Linkname: e.Linkname,
		}
		if hdr.Typeflag == 0 {
			hdr.Typeflag = tar.TypeReg
		}
		if hdr.Typeflag == tar.TypeReg {
			hdr.Size = int64(len(e.Body))
		}
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
			if hdr.Typeflag == tar.TypeDir {
				hdr.Mode = 0o755
			}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("failed to write tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.Body)); err != nil {
				t.Fatalf("failed to write tar body %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}

	if !compress {
		return tarBuf.Bytes()
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("failed to gzip archive: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return gzBuf.Bytes()
}
