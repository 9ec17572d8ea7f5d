// Sshorch
// Copyright (C) 2019-2026+ The sshorch contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package hashprobe hashes local and remote files with SHA-256, the only
// algorithm this engine supports (see the Hash lock-in design note: earlier
// drafts exposed an algorithm knob and it was collapsed here on purpose).
// It generalizes the sha256sum caching the teacher's FileRes.fileCheckApply
// does for local files to also cover the remote side, over a Transport.
package hashprobe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/session"
)

// Algorithm is fixed; the constant exists only to self-document FileHashInfo.
const Algorithm = "sha256"

// FileHashInfo is the result of hashing one file.
type FileHashInfo struct {
	Algorithm string
	HexDigest string
	SizeBytes int64
}

// LocalHash streams path and computes its SHA-256.
func LocalHash(path string) (FileHashInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileHashInfo{}, errwrap.WrapError(errwrap.KindIO, err, "opening local file %q", path)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return FileHashInfo{}, errwrap.WrapError(errwrap.KindIO, err, "hashing local file %q", path)
	}
	return FileHashInfo{
		Algorithm: Algorithm,
		HexDigest: hex.EncodeToString(h.Sum(nil)),
		SizeBytes: size,
	}, nil
}

// quoteSingle escapes a path for embedding inside single quotes in a POSIX
// shell command, using the same 'PATH'\''rest' idiom the engine uses
// everywhere it builds a remote command line.
func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// existsMarker/notExistsMarker delimit the first line of the composed
// remote probe command's output.
const (
	existsMarker    = "EXISTS"
	notExistsMarker = "NOT_EXISTS"
)

// remoteProbeCommand builds the single shell command described in the
// design: test existence, then (if present) read size with a GNU/BSD stat
// fallback and hash with a sha256sum/shasum fallback.
func remoteProbeCommand(path string) string {
	q := quoteSingle(path)
	return fmt.Sprintf(
		"if test -f %s; then echo %s; stat -c %%s %s 2>/dev/null || stat -f %%z %s; sha256sum %s 2>/dev/null || shasum -a 256 %s; else echo %s; fi",
		q, existsMarker, q, q, q, q, notExistsMarker,
	)
}

// RemoteHash hashes dest on the remote host. It returns (info, true, nil)
// when dest exists, (FileHashInfo{}, false, nil) when it doesn't, and an
// error only on a transport failure or an unparsable probe response.
func RemoteHash(t session.Transport, dest string) (FileHashInfo, bool, error) {
	result, err := t.Run(remoteProbeCommand(dest))
	if err != nil {
		return FileHashInfo{}, false, errwrap.WrapError(errwrap.KindFileOperation, err, "probing remote file %q", dest)
	}

	lines := splitNonEmptyLines(result.Stdout)
	if len(lines) == 0 {
		return FileHashInfo{}, false, errwrap.NewError(errwrap.KindFileOperation, "empty probe response for %q", dest)
	}

	switch strings.TrimSpace(lines[0]) {
	case notExistsMarker:
		return FileHashInfo{}, false, nil
	case existsMarker:
		// fall through
	default:
		return FileHashInfo{}, false, errwrap.NewError(errwrap.KindFileOperation, "unexpected probe marker %q for %q", lines[0], dest)
	}

	if len(lines) < 3 {
		return FileHashInfo{}, false, errwrap.NewError(errwrap.KindFileOperation, "incomplete probe response for %q: %q", dest, result.Stdout)
	}

	size, err := parseSize(lines[1])
	if err != nil {
		return FileHashInfo{}, false, errwrap.WrapError(errwrap.KindFileOperation, err, "parsing size for %q", dest)
	}

	hexDigest, err := parseHashLine(lines[2])
	if err != nil {
		return FileHashInfo{}, false, errwrap.WrapError(errwrap.KindFileOperation, err, "parsing hash for %q", dest)
	}

	return FileHashInfo{Algorithm: Algorithm, HexDigest: hexDigest, SizeBytes: size}, true, nil
}

// parseHashLine takes the first whitespace-delimited token of a
// `sha256sum`/`shasum -a 256` output line as the hex digest.
func parseHashLine(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", errwrap.NewError(errwrap.KindFileOperation, "empty hash line")
	}
	return fields[0], nil
}

func parseSize(line string) (int64, error) {
	var size int64
	line = strings.TrimSpace(line)
	if _, err := fmt.Sscanf(line, "%d", &size); err != nil {
		return 0, errwrap.Wrapf(err, "parsing size %q", line)
	}
	return size, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// Match reports whether two FileHashInfo values describe the same content.
func Match(a, b FileHashInfo) bool {
	return a.HexDigest == b.HexDigest && a.SizeBytes == b.SizeBytes
}
