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

// Package templatedeploy renders a local template, diffs it against the
// live remote file, optionally validates the staged result with an
// operator-supplied command, and hands off to filedeploy for the same
// atomic, verified transfer every other deploy path uses.
package templatedeploy

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/sshorch/sshorch/filedeploy"
	"github.com/sshorch/sshorch/hashprobe"
	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/internal/tempname"
	"github.com/sshorch/sshorch/session"
)

// Options configures one template deployment.
type Options struct {
	Src       string
	Dest      string
	Variables map[string]interface{}

	Owner      string
	Group      string
	Mode       string
	Backup     bool
	CreateDirs bool

	// Validate, if non-empty, must contain the literal substring "%s",
	// substituted with the staged remote path before being run.
	Validate string
}

// Result is the outcome of one Deploy call.
type Result struct {
	Success bool
	Changed bool
	Message string
	Diff    string
}

func readRemote(t session.Transport, dest string) (string, bool, error) {
	_, exists, err := hashprobe.RemoteHash(t, dest)
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	r, _, err := t.ScpRecv(dest)
	if err != nil {
		return "", false, errwrap.WrapError(errwrap.KindFileOperation, err, "reading remote file %q", dest)
	}
	defer r.Close()
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return "", false, errwrap.WrapError(errwrap.KindIO, err, "reading remote file %q", dest)
	}
	return string(data), true, nil
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func backupTimestamp() string {
	return time.Now().UTC().Format("20060102_150405")
}

// Deploy renders Src, compares it to the live Dest, and — if different —
// backs up, validates, and uploads the rendered content.
func Deploy(t session.Transport, opts Options) (Result, error) {
	rendered, err := Render(opts.Src, opts.Variables)
	if err != nil {
		return Result{}, err
	}

	remoteContent, exists, err := readRemote(t, opts.Dest)
	if err != nil {
		return Result{}, err
	}
	if exists && remoteContent == rendered {
		return Result{Success: true, Changed: false, Message: "no changes"}, nil
	}

	diff := UnifiedDiff(remoteContent, rendered)

	if opts.Backup && exists {
		backupPath := opts.Dest + "." + backupTimestamp() + ".backup"
		if _, err := t.Run("cp " + quoteSingle(opts.Dest) + " " + quoteSingle(backupPath)); err != nil {
			return Result{}, errwrap.WrapError(errwrap.KindFileOperation, err, "backing up %q", opts.Dest)
		}
	}

	localTemp := tempname.LocalPath("template")
	if err := os.WriteFile(localTemp, []byte(rendered), 0o644); err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindIO, err, "writing rendered template to %q", localTemp)
	}
	defer os.Remove(localTemp)

	if opts.Validate != "" {
		if err := validate(t, localTemp, opts.Dest, opts.Validate); err != nil {
			return Result{}, err
		}
	}

	deployResult, err := filedeploy.Deploy(t, localTemp, opts.Dest, filedeploy.Options{
		Owner:      opts.Owner,
		Group:      opts.Group,
		Mode:       opts.Mode,
		CreateDirs: true,
		Backup:     false, // already handled above, with the template-specific naming convention
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Success: deployResult.Success, Changed: true, Message: "deployed", Diff: diff}, nil
}

// validate uploads localTemp to a staging path, substitutes it into the
// validate command, and runs it. A non-zero exit removes the staging file
// and returns a ValidationError without touching dest.
func validate(t session.Transport, localTemp, dest, validateCmd string) error {
	stagingPath := tempname.RemotePath(dest)

	if _, err := filedeploy.Deploy(t, localTemp, stagingPath, filedeploy.Options{}); err != nil {
		return errwrap.WrapError(errwrap.KindFileOperation, err, "uploading staged template for validation")
	}

	cmd := strings.Replace(validateCmd, "%s", stagingPath, 1)
	result, err := t.Run(cmd)
	if err != nil {
		removeRemote(t, stagingPath)
		return errwrap.WrapError(errwrap.KindValidation, err, "running validate command %q", cmd)
	}
	if result.ExitCode != 0 {
		removeRemote(t, stagingPath)
		return errwrap.NewError(errwrap.KindValidation, "validate command %q exited %d: %s", cmd, result.ExitCode, result.Stderr)
	}

	removeRemote(t, stagingPath)
	return nil
}

func removeRemote(t session.Transport, path string) {
	_, _ = t.Run("rm -f " + quoteSingle(path))
}
