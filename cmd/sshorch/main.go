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

// Command sshorch is the CLI driver around the engine packages: it loads
// an inventory and a playbook from disk and runs the playbook, reporting
// per-host, per-task progress as structured log lines. The engine itself
// never imports a logging framework; this binary is where one gets wired
// in.
package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sshorch/sshorch/batch"
	"github.com/sshorch/sshorch/config"
	"github.com/sshorch/sshorch/inventory"
	"github.com/sshorch/sshorch/playbook"
	"github.com/sshorch/sshorch/session"
)

// args is the top-level CLI parsing structure.
type args struct {
	Inventory  string `arg:"--inventory,required" help:"path to the inventory YAML or JSON file"`
	Playbook   string `arg:"--playbook,required" help:"path to the playbook YAML or JSON file"`
	MaxConns   int    `arg:"--max-connections" help:"max simultaneous SSH sessions (default from config/env)"`
	ConfigPath string `arg:"--config" help:"optional config YAML file for engine defaults"`
	Verbose    bool   `arg:"--verbose" help:"enable debug-level logging"`
}

func (args) Description() string {
	return "sshorch runs a playbook of SSH-orchestrated tasks across an inventory of hosts."
}

func main() {
	var a args
	arg.MustParse(&a)

	log := logrus.New()
	if a.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(a, log); err != nil {
		log.WithError(err).Error("sshorch run failed")
		os.Exit(1)
	}
}

func loadInventory(path string) (*inventory.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isJSONPath(path) {
		return inventory.LoadJSON(data)
	}
	return inventory.LoadYAML(data)
}

func loadPlaybook(path string) (playbook.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return playbook.Playbook{}, err
	}
	if isJSONPath(path) {
		return playbook.LoadJSON(data)
	}
	return playbook.LoadYAML(data)
}

func isJSONPath(path string) bool {
	return len(path) > 5 && path[len(path)-5:] == ".json"
}

// engineLogger wires the engine's framework-free session.Logger onto
// logrus, attaching runID to every line so logs from one playbook run
// correlate across hosts and tasks. fields (host/task/attempt) become
// logrus.Fields verbatim.
func engineLogger(log *logrus.Logger, runID string) session.Logger {
	withFields := func(fields map[string]interface{}) *logrus.Entry {
		f := logrus.Fields{"run_id": runID}
		for k, v := range fields {
			f[k] = v
		}
		return log.WithFields(f)
	}
	return session.Logger{
		Debugf: func(fields map[string]interface{}, format string, v ...interface{}) {
			withFields(fields).Debugf(format, v...)
		},
		Infof: func(fields map[string]interface{}, format string, v ...interface{}) {
			withFields(fields).Infof(format, v...)
		},
	}
}

func run(a args, log *logrus.Logger) error {
	cfg, err := config.LoadEnv()
	if err != nil {
		return fmt.Errorf("reading config from environment: %w", err)
	}
	if a.ConfigPath != "" {
		data, err := os.ReadFile(a.ConfigPath)
		if err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
		cfg, err = config.LoadYAML(data)
		if err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}
	if a.MaxConns > 0 {
		cfg.MaxConcurrentConnections = a.MaxConns
	}

	inv, err := loadInventory(a.Inventory)
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("validating inventory: %w", err)
	}

	pb, err := loadPlaybook(a.Playbook)
	if err != nil {
		return fmt.Errorf("loading playbook: %w", err)
	}

	runID := uuid.NewString()
	log.WithFields(logrus.Fields{"run_id": runID, "playbook": pb.Name, "hosts": len(inv.AllHosts())}).Info("starting playbook")

	executor := batch.NewExecutor(inv, cfg.MaxConcurrentConnections)
	executor.Logger = engineLogger(log, runID)
	result, err := playbook.Run(executor, pb)
	if err != nil {
		return fmt.Errorf("running playbook: %w", err)
	}

	for _, report := range result.TaskReports {
		for host, hr := range report.Results {
			fields := logrus.Fields{"run_id": runID, "task": report.TaskName, "host": host}
			if hr.Err != nil {
				log.WithFields(fields).WithError(hr.Err).Warn("task failed on host")
				continue
			}
			log.WithFields(fields).Info("task completed on host")
		}
	}

	log.WithFields(logrus.Fields{"run_id": runID, "overall_success": result.OverallSuccess}).Info("playbook finished")
	if !result.OverallSuccess {
		return fmt.Errorf("playbook %q did not complete successfully", pb.Name)
	}
	return nil
}
