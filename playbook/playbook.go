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

// Package playbook sequences an ordered list of Tasks across a host set,
// dispatching each one through batch.Run and tracking which hosts have
// fallen out of rotation after a non-ignored failure.
package playbook

import (
	"os"
	"strings"

	"github.com/sshorch/sshorch/batch"
	"github.com/sshorch/sshorch/filedeploy"
	"github.com/sshorch/sshorch/internal/errwrap"
	"github.com/sshorch/sshorch/internal/tempname"
	"github.com/sshorch/sshorch/session"
	"github.com/sshorch/sshorch/systemprobe"
	"github.com/sshorch/sshorch/templatedeploy"
	"github.com/sshorch/sshorch/userreconcile"
)

// TaskType names one of the seven task kinds a Playbook can sequence.
type TaskType string

const (
	TaskCommand    TaskType = "command"
	TaskShell      TaskType = "shell"
	TaskCopy       TaskType = "copy"
	TaskTemplate   TaskType = "template"
	TaskUser       TaskType = "user"
	TaskSystemInfo TaskType = "system_info"
	TaskPing       TaskType = "ping"
)

// Task is one step of a Playbook. Only the fields relevant to Type are read.
type Task struct {
	Name         string   `yaml:"name" json:"name"`
	Type         TaskType `yaml:"task_type" json:"task_type"`
	Hosts        []string `yaml:"hosts,omitempty" json:"hosts,omitempty"`
	IgnoreErrors bool     `yaml:"ignore_errors,omitempty" json:"ignore_errors,omitempty"`

	Command string `yaml:"command,omitempty" json:"command,omitempty"`
	Script  string `yaml:"script,omitempty" json:"script,omitempty"`

	Src     string             `yaml:"src,omitempty" json:"src,omitempty"`
	Dest    string             `yaml:"dest,omitempty" json:"dest,omitempty"`
	Options filedeploy.Options `yaml:"options,omitempty" json:"options,omitempty"`

	Variables map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`
	Validate  string                 `yaml:"validate,omitempty" json:"validate,omitempty"`

	User userreconcile.Options `yaml:"user,omitempty" json:"user,omitempty"`
}

// Playbook is an ordered sequence of Tasks run against an Inventory.
type Playbook struct {
	Name  string `yaml:"name" json:"name"`
	Tasks []Task `yaml:"tasks" json:"tasks"`
}

// Outcome is the per-host result of executing one Task.
type Outcome struct {
	Success    bool
	Message    string
	Diff       string
	SystemInfo *systemprobe.Info
}

// TaskReport is one task's full set of per-host outcomes, including any
// hosts that were skipped because they failed an earlier task.
type TaskReport struct {
	TaskName string
	Results  map[string]batch.HostResult[Outcome]
	Skipped  []string
}

// Result is the outcome of running an entire Playbook.
type Result struct {
	TaskReports    []TaskReport
	OverallSuccess bool
}

// Run executes pb against e's inventory, task by task, in order.
func Run(e *batch.Executor, pb Playbook) (Result, error) {
	failedHosts := map[string]bool{}
	allHosts := e.Inventory.AllHosts()
	result := Result{OverallSuccess: true}

	for _, task := range pb.Tasks {
		target := task.Hosts
		if target == nil {
			target = allHosts
		}

		var active, skipped []string
		for _, h := range target {
			if failedHosts[h] {
				skipped = append(skipped, h)
			} else {
				active = append(active, h)
			}
		}

		report := TaskReport{
			TaskName: task.Name,
			Results:  map[string]batch.HostResult[Outcome]{},
			Skipped:  skipped,
		}
		for _, h := range skipped {
			report.Results[h] = batch.HostResult[Outcome]{
				HostID: h,
				Err:    errwrap.NewError(errwrap.KindCommandExecution, "host skipped due to previous failure"),
			}
		}

		if len(active) == 0 {
			result.TaskReports = append(result.TaskReports, report)
			if !task.IgnoreErrors {
				result.OverallSuccess = false
			}
			continue
		}

		batchResult := batch.Run(e, task.Name, active, func(t session.Transport) (Outcome, error) {
			return executeTask(t, task)
		})
		for id, hr := range batchResult.Results {
			report.Results[id] = hr
		}
		result.TaskReports = append(result.TaskReports, report)

		if !task.IgnoreErrors {
			for _, id := range batchResult.Failed() {
				failedHosts[id] = true
			}
			if batchResult.SuccessRate() == 0 {
				result.OverallSuccess = false
				return result, nil
			}
		}
	}

	return result, nil
}

func executeTask(t session.Transport, task Task) (Outcome, error) {
	switch task.Type {
	case TaskPing:
		return executePing(t)
	case TaskCommand:
		return executeCommand(t, task.Command)
	case TaskShell:
		return executeShell(t, task.Script)
	case TaskCopy:
		return executeCopy(t, task)
	case TaskTemplate:
		return executeTemplate(t, task)
	case TaskUser:
		return executeUser(t, task.User)
	case TaskSystemInfo:
		return executeSystemInfo(t)
	default:
		return Outcome{}, errwrap.NewError(errwrap.KindValidation, "unknown task type %q", task.Type)
	}
}

func executePing(t session.Transport) (Outcome, error) {
	ok, err := t.Ping()
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, errwrap.NewError(errwrap.KindCommandExecution, "ping did not receive the expected reply")
	}
	return Outcome{Success: true, Message: "pong"}, nil
}

func executeCommand(t session.Transport, cmd string) (Outcome, error) {
	result, err := t.Run(cmd)
	if err != nil {
		return Outcome{}, err
	}
	if result.ExitCode != 0 {
		return Outcome{}, errwrap.NewError(errwrap.KindCommand, "command %q exited %d: %s", cmd, result.ExitCode, result.Stderr)
	}
	return Outcome{Success: true, Message: result.Stdout}, nil
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// executeShell strips CR bytes from the script body, stages it through
// FileDeploy, executes it, and removes the remote copy regardless of the
// command's own exit status.
func executeShell(t session.Transport, script string) (Outcome, error) {
	clean := strings.ReplaceAll(script, "\r", "")

	localPath := tempname.LocalPath("script")
	if err := os.WriteFile(localPath, []byte(clean), 0o755); err != nil {
		return Outcome{}, errwrap.WrapError(errwrap.KindIO, err, "writing local script temp file")
	}
	defer os.Remove(localPath)

	remotePath := tempname.RemotePath("/tmp/sshorch-script")
	if _, err := filedeploy.Deploy(t, localPath, remotePath, filedeploy.Options{Mode: "755"}); err != nil {
		return Outcome{}, errwrap.WrapError(errwrap.KindFileOperation, err, "uploading shell script")
	}
	defer func() { _, _ = t.Run("rm -f " + quoteSingle(remotePath)) }()

	result, err := t.Run("chmod +x " + remotePath + " && " + remotePath)
	if err != nil {
		return Outcome{}, err
	}
	if result.ExitCode != 0 {
		return Outcome{}, errwrap.NewError(errwrap.KindCommand, "shell script exited %d: %s", result.ExitCode, result.Stderr)
	}
	return Outcome{Success: true, Message: result.Stdout}, nil
}

func executeCopy(t session.Transport, task Task) (Outcome, error) {
	res, err := filedeploy.Deploy(t, task.Src, task.Dest, task.Options)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Success: res.Success, Message: res.Message}, nil
}

func executeTemplate(t session.Transport, task Task) (Outcome, error) {
	res, err := templatedeploy.Deploy(t, templatedeploy.Options{
		Src:        task.Src,
		Dest:       task.Dest,
		Variables:  task.Variables,
		Owner:      task.Options.Owner,
		Group:      task.Options.Group,
		Mode:       task.Options.Mode,
		Backup:     task.Options.Backup,
		CreateDirs: task.Options.CreateDirs,
		Validate:   task.Validate,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Success: res.Success, Message: res.Message, Diff: res.Diff}, nil
}

func executeUser(t session.Transport, opts userreconcile.Options) (Outcome, error) {
	res, err := userreconcile.Reconcile(t, opts)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Success: res.Success, Message: res.Message}, nil
}

func executeSystemInfo(t session.Transport) (Outcome, error) {
	info, err := systemprobe.Probe(t)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Success: true, Message: "collected", SystemInfo: &info}, nil
}
