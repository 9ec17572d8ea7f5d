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

// Package userreconcile drives an OS user account toward a declared
// present/absent state over an existing session.Transport, the same
// check-then-apply shape the rest of this module's resources use.
package userreconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/session"
)

// State is the declared target for a user account.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// Options describes the desired state of one OS user account.
type Options struct {
	Name         string   `yaml:"name" json:"name"`
	State        State    `yaml:"state,omitempty" json:"state,omitempty"`
	UID          *int     `yaml:"uid,omitempty" json:"uid,omitempty"`
	GID          *int     `yaml:"gid,omitempty" json:"gid,omitempty"`
	Group        string   `yaml:"group,omitempty" json:"group,omitempty"`
	Groups       []string `yaml:"groups,omitempty" json:"groups,omitempty"`
	HomeDir      string   `yaml:"home,omitempty" json:"home,omitempty"`
	Shell        string   `yaml:"shell,omitempty" json:"shell,omitempty"`
	Comment      string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	CreateHome   bool     `yaml:"create_home,omitempty" json:"create_home,omitempty"`
	NoCreateHome bool     `yaml:"no_create_home,omitempty" json:"no_create_home,omitempty"`
	System       bool     `yaml:"system,omitempty" json:"system,omitempty"`
	Expires      string   `yaml:"expires,omitempty" json:"expires,omitempty"` // YYYY-MM-DD, passed to useradd/usermod -e
	Password     string   `yaml:"password,omitempty" json:"password,omitempty"` // pre-encrypted, piped to chpasswd -e
}

// Info is the parsed getent passwd NAME record.
type Info struct {
	Name    string
	UID     int
	GID     int
	Comment string
	Home    string
	Shell   string
}

// Result is the outcome of one Reconcile call.
type Result struct {
	Success bool
	Changed bool
	Message string
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// exists reports whether NAME already has a passwd entry, via `id -u NAME`.
func exists(t session.Transport, name string) (bool, error) {
	result, err := t.Run("id -u " + quoteSingle(name))
	if err != nil {
		return false, errwrap.WrapError(errwrap.KindCommandExecution, err, "probing user %q", name)
	}
	return result.ExitCode == 0, nil
}

// lookup parses `getent passwd NAME` into an Info.
func lookup(t session.Transport, name string) (Info, error) {
	result, err := t.Run("getent passwd " + quoteSingle(name))
	if err != nil {
		return Info{}, errwrap.WrapError(errwrap.KindCommandExecution, err, "looking up user %q", name)
	}
	if result.ExitCode != 0 {
		return Info{}, errwrap.NewError(errwrap.KindSystemInfo, "user %q not found by getent", name)
	}
	fields := strings.Split(strings.TrimSpace(result.Stdout), ":")
	if len(fields) != 7 {
		return Info{}, errwrap.NewError(errwrap.KindSystemInfo, "malformed passwd line for %q: %q", name, result.Stdout)
	}
	uid, err := strconv.Atoi(fields[2])
	if err != nil {
		return Info{}, errwrap.WrapError(errwrap.KindSystemInfo, err, "parsing uid for %q", name)
	}
	gid, err := strconv.Atoi(fields[3])
	if err != nil {
		return Info{}, errwrap.WrapError(errwrap.KindSystemInfo, err, "parsing gid for %q", name)
	}
	return Info{
		Name:    fields[0],
		UID:     uid,
		GID:     gid,
		Comment: fields[4],
		Home:    fields[5],
		Shell:   fields[6],
	}, nil
}

// buildArgs constructs the shared useradd/usermod flag set from opts.
// includeCreation controls whether -m/-M/-r (creation-only flags) are
// emitted, since usermod rejects them.
func buildArgs(opts Options, includeCreation bool) []string {
	var args []string
	if opts.UID != nil {
		args = append(args, "-u", strconv.Itoa(*opts.UID))
	}
	if opts.GID != nil {
		args = append(args, "-g", strconv.Itoa(*opts.GID))
	} else if opts.Group != "" {
		args = append(args, "-g", opts.Group)
	}
	if len(opts.Groups) > 0 {
		args = append(args, "-G", strings.Join(opts.Groups, ","))
	}
	if opts.HomeDir != "" {
		args = append(args, "-d", opts.HomeDir)
	}
	if opts.Shell != "" {
		args = append(args, "-s", opts.Shell)
	}
	if opts.Comment != "" {
		args = append(args, "-c", quoteSingle(opts.Comment))
	}
	if opts.Expires != "" {
		args = append(args, "-e", opts.Expires)
	}
	if includeCreation {
		if opts.CreateHome {
			args = append(args, "-m")
		}
		if opts.NoCreateHome {
			args = append(args, "-M")
		}
		if opts.System {
			args = append(args, "-r")
		}
	}
	return args
}

func hasDrift(info Info, opts Options) bool {
	if opts.UID != nil && *opts.UID != info.UID {
		return true
	}
	if opts.GID != nil && *opts.GID != info.GID {
		return true
	}
	if opts.HomeDir != "" && opts.HomeDir != info.Home {
		return true
	}
	if opts.Shell != "" && opts.Shell != info.Shell {
		return true
	}
	if opts.Comment != "" && opts.Comment != info.Comment {
		return true
	}
	// Group/Groups require a deeper lookup (getent group, supplementary
	// membership) this probe doesn't perform; conservatively assume drift
	// whenever either is specified so a declared membership is enforced.
	if opts.Group != "" || len(opts.Groups) > 0 {
		return true
	}
	// Expiry lives in /etc/shadow, not the passwd record lookup parses;
	// conservatively assume drift whenever it's specified, same as Group.
	if opts.Expires != "" {
		return true
	}
	return false
}

// Reconcile drives the named account toward opts.State.
func Reconcile(t session.Transport, opts Options) (Result, error) {
	if opts.Name == "" {
		return Result{}, errwrap.NewError(errwrap.KindValidation, "user name is required")
	}

	present, err := exists(t, opts.Name)
	if err != nil {
		return Result{}, err
	}

	switch opts.State {
	case StateAbsent:
		return reconcileAbsent(t, opts, present)
	case StatePresent, "":
		return reconcilePresent(t, opts, present)
	default:
		return Result{}, errwrap.NewError(errwrap.KindValidation, "unknown user state %q", opts.State)
	}
}

func reconcileAbsent(t session.Transport, opts Options, present bool) (Result, error) {
	if !present {
		return Result{Success: true, Changed: false, Message: "already absent"}, nil
	}
	result, err := t.Run(fmt.Sprintf("userdel -r %s", quoteSingle(opts.Name)))
	if err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindCommandExecution, err, "deleting user %q", opts.Name)
	}
	if result.ExitCode != 0 {
		return Result{}, errwrap.NewError(errwrap.KindCommand, "userdel %q exited %d: %s", opts.Name, result.ExitCode, result.Stderr)
	}
	return Result{Success: true, Changed: true, Message: "deleted"}, nil
}

func reconcilePresent(t session.Transport, opts Options, present bool) (Result, error) {
	if !present {
		args := buildArgs(opts, true)
		args = append(args, quoteSingle(opts.Name))
		result, err := t.Run("useradd " + strings.Join(args, " "))
		if err != nil {
			return Result{}, errwrap.WrapError(errwrap.KindCommandExecution, err, "creating user %q", opts.Name)
		}
		if result.ExitCode != 0 {
			return Result{}, errwrap.NewError(errwrap.KindCommand, "useradd %q exited %d: %s", opts.Name, result.ExitCode, result.Stderr)
		}
		if opts.Password != "" {
			if err := setPassword(t, opts.Name, opts.Password); err != nil {
				return Result{}, err
			}
		}
		return Result{Success: true, Changed: true, Message: "created"}, nil
	}

	info, err := lookup(t, opts.Name)
	if err != nil {
		return Result{}, err
	}
	if !hasDrift(info, opts) {
		return Result{Success: true, Changed: false, Message: "no drift"}, nil
	}

	args := buildArgs(opts, false)
	if len(args) == 0 {
		return Result{Success: true, Changed: false, Message: "no drift"}, nil
	}
	args = append(args, quoteSingle(opts.Name))
	result, err := t.Run("usermod " + strings.Join(args, " "))
	if err != nil {
		return Result{}, errwrap.WrapError(errwrap.KindCommandExecution, err, "modifying user %q", opts.Name)
	}
	if result.ExitCode != 0 {
		return Result{}, errwrap.NewError(errwrap.KindCommand, "usermod %q exited %d: %s", opts.Name, result.ExitCode, result.Stderr)
	}
	if opts.Password != "" {
		if err := setPassword(t, opts.Name, opts.Password); err != nil {
			return Result{}, err
		}
	}
	return Result{Success: true, Changed: true, Message: "modified"}, nil
}

func setPassword(t session.Transport, name, encrypted string) error {
	cmd := fmt.Sprintf("echo %s | chpasswd -e", quoteSingle(name+":"+encrypted))
	result, err := t.Run(cmd)
	if err != nil {
		return errwrap.WrapError(errwrap.KindCommandExecution, err, "setting password for %q", name)
	}
	if result.ExitCode != 0 {
		return errwrap.NewError(errwrap.KindCommand, "chpasswd for %q exited %d: %s", name, result.ExitCode, result.Stderr)
	}
	return nil
}
