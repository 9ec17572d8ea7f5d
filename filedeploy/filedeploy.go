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

// Package filedeploy implements the idempotent, three-phase SHA-256
// transfer protocol: precompute the local hash, probe the remote
// destination for an already-matching copy, and otherwise stage the bytes
// remotely and verify them before the atomic rename that commits them.
// It generalizes the staged-copy-then-rename approach of the teacher's
// remote.go SftpCopy, adding the idempotency probe and attribute
// application the bootstrap copy never needed.
package filedeploy

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sshorch/sshorch/hashprobe"
	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/internal/tempname"
	"github.com/sshorch/sshorch/session"
)

// DefaultMode is applied to newly staged files when Options.Mode is empty.
const DefaultMode = 0o644

// Options configures one deployment.
type Options struct {
	Owner           string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Group           string `yaml:"group,omitempty" json:"group,omitempty"`
	Mode            string `yaml:"mode,omitempty" json:"mode,omitempty"` // octal string, e.g. "644"
	Backup          bool   `yaml:"backup,omitempty" json:"backup,omitempty"`
	CreateDirs      bool   `yaml:"create_dirs,omitempty" json:"create_dirs,omitempty"`
	PrecomputedHash string `yaml:"precomputed_hash,omitempty" json:"precomputed_hash,omitempty"` // hex SHA-256 of the local file; skips local hashing
}

// Result is the outcome of one Deploy call. BytesTransferred == 0 signals
// an idempotent skip.
type Result struct {
	Success          bool
	BytesTransferred int64
	Message          string
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func parseMode(mode string) (uint32, error) {
	if mode == "" {
		return DefaultMode, nil
	}
	v, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, errwrap.Wrapf(err, "parsing mode %q as octal", mode)
	}
	return uint32(v), nil
}

// localHashInfo runs phase 1: trust a precomputed hash if supplied, else
// hash the local file ourselves.
func localHashInfo(localPath string, precomputed string) (hashprobe.FileHashInfo, error) {
	if precomputed == "" {
		return hashprobe.LocalHash(localPath)
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return hashprobe.FileHashInfo{}, errwrap.WrapError(errwrap.KindIO, err, "stat local file %q", localPath)
	}
	return hashprobe.FileHashInfo{Algorithm: hashprobe.Algorithm, HexDigest: precomputed, SizeBytes: info.Size()}, nil
}

// Deploy runs the full three-phase protocol described above.
func Deploy(t session.Transport, localPath, dest string, opts Options) (Result, error) {
	local, err := localHashInfo(localPath, opts.PrecomputedHash)
	if err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "computing local hash for %q", localPath)
	}

	remote, remoteExists, err := hashprobe.RemoteHash(t, dest)
	if err != nil {
		return Result{}, err
	}

	if remoteExists && hashprobe.Match(local, remote) {
		if err := applyAttributes(t, dest, opts); err != nil {
			return Result{}, err
		}
		return Result{Success: true, BytesTransferred: 0, Message: "destination already matches local source"}, nil
	}

	return stageAndCommit(t, localPath, dest, local, remoteExists, opts)
}

func stageAndCommit(t session.Transport, localPath, dest string, local hashprobe.FileHashInfo, remoteExists bool, opts Options) (Result, error) {
	if opts.CreateDirs {
		dir := path.Dir(dest)
		if _, err := t.Run(fmt.Sprintf("mkdir -p %s", quoteSingle(dir))); err != nil {
			return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "creating parent directory %q", dir)
		}
	}

	if opts.Backup && remoteExists {
		backupPath := fmt.Sprintf("%s.bak.%s", dest, utcTimestamp())
		// Backup failure is not fatal: the deploy goes on. The failure is
		// not returned and not logged, and a non-zero cp exit is not checked.
		if _, err := t.Run(fmt.Sprintf("cp %s %s", quoteSingle(dest), quoteSingle(backupPath))); err != nil {
			_ = err // ignored: neither returned nor logged
		}
	}

	mode, err := parseMode(opts.Mode)
	if err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "invalid mode for %q", dest)
	}

	stagingPath := tempname.RemotePath(dest)

	f, err := os.Open(localPath)
	if err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindIO, err, "opening local file %q", localPath)
	}
	defer f.Close()

	if err := t.ScpSend(stagingPath, mode, local.SizeBytes, f); err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "uploading %q to staging path %q", localPath, stagingPath)
	}

	staged, stagedExists, err := hashprobe.RemoteHash(t, stagingPath)
	if err != nil {
		removeStaging(t, stagingPath)
		return Result{}, err
	}
	if !stagedExists || !hashprobe.Match(local, staged) {
		removeStaging(t, stagingPath)
		localSize, stagedSize := local.SizeBytes, staged.SizeBytes
		return Result{}, errwrap.NewError(errwrap.KindFileOperation,
			"hash mismatch after transfer to %q: local=%s(%d bytes) staged=%s(%d bytes)",
			dest, local.HexDigest, localSize, staged.HexDigest, stagedSize)
	}

	if _, err := t.Run(fmt.Sprintf("mv %s %s", quoteSingle(stagingPath), quoteSingle(dest))); err != nil {
		removeStaging(t, stagingPath)
		return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "committing %q to %q", stagingPath, dest)
	}

	if err := applyAttributes(t, dest, opts); err != nil {
		// Bytes already landed at dest via the atomic mv above; surface
		// the attribute-apply error without attempting to undo the commit.
		return Result{}, err
	}

	return Result{Success: true, BytesTransferred: local.SizeBytes, Message: "transferred"}, nil
}

func removeStaging(t session.Transport, stagingPath string) {
	_, _ = t.Run(fmt.Sprintf("rm -f %s", quoteSingle(stagingPath)))
}

func applyAttributes(t session.Transport, dest string, opts Options) error {
	if opts.Mode != "" {
		if _, err := t.Run(fmt.Sprintf("chmod %s %s", opts.Mode, quoteSingle(dest))); err != nil {
			return errwrap.WrapError(errwrap.KindFileOperation, err, "chmod %q on %q", opts.Mode, dest)
		}
	}
	switch {
	case opts.Owner != "" && opts.Group != "":
		if _, err := t.Run(fmt.Sprintf("chown %s:%s %s", opts.Owner, opts.Group, quoteSingle(dest))); err != nil {
			return errwrap.WrapError(errwrap.KindFileOperation, err, "chown %s:%s on %q", opts.Owner, opts.Group, dest)
		}
	case opts.Owner != "":
		if _, err := t.Run(fmt.Sprintf("chown %s %s", opts.Owner, quoteSingle(dest))); err != nil {
			return errwrap.WrapError(errwrap.KindFileOperation, err, "chown %s on %q", opts.Owner, dest)
		}
	case opts.Group != "":
		if _, err := t.Run(fmt.Sprintf("chgrp %s %s", opts.Group, quoteSingle(dest))); err != nil {
			return errwrap.WrapError(errwrap.KindFileOperation, err, "chgrp %s on %q", opts.Group, dest)
		}
	}
	return nil
}

// utcTimestamp formats the backup-filename timestamp used by FileDeploy,
// "YYYYMMDD_HHMMSS" in UTC, in the name "dest.bak.TIMESTAMP". TemplateDeploy
// uses the same timestamp in a different name, "dest.TIMESTAMP.backup" (see
// templatedeploy); both are preserved for operational compatibility with
// existing backup files.
func utcTimestamp() string {
	return time.Now().UTC().Format("20060102_150405")
}
