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

// Package config holds the engine's tunable defaults: how many connections
// run at once and how long a connect or command attempt waits before
// timing out. It's loadable from YAML, JSON, or the process environment.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/sshorch/sshorch/internal/errwrap"
)

// DefaultMaxConcurrentConnections matches the spec's counting-semaphore
// default capacity.
const DefaultMaxConcurrentConnections = 15

// DefaultConnectTimeout matches session.HandshakeTimeout.
const DefaultConnectTimeout = 10 * time.Second

// DefaultCommandTimeout is generous headroom for a single remote command;
// the spec doesn't mandate a value, so this one is advisory only until a
// caller wires it into a context deadline.
const DefaultCommandTimeout = 60 * time.Second

// Config is the engine's ambient tuning surface.
type Config struct {
	MaxConcurrentConnections int           `yaml:"max_concurrent_connections" json:"max_concurrent_connections"`
	ConnectTimeout           time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	CommandTimeout           time.Duration `yaml:"command_timeout" json:"command_timeout"`
}

// Default returns a Config populated with the documented defaults.
func Default() Config {
	return Config{
		MaxConcurrentConnections: DefaultMaxConcurrentConnections,
		ConnectTimeout:           DefaultConnectTimeout,
		CommandTimeout:           DefaultCommandTimeout,
	}
}

// applyDefaults fills in any zero-valued field left unset by a loader.
func (c *Config) applyDefaults() {
	if c.MaxConcurrentConnections == 0 {
		c.MaxConcurrentConnections = DefaultMaxConcurrentConnections
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
}

// LoadYAML parses cfg from YAML, then fills in any field the document left
// unset with its documented default.
func LoadYAML(data []byte) (Config, error) {
	c := Config{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errwrap.WrapError(errwrap.KindIO, err, "parsing config YAML")
	}
	c.applyDefaults()
	return c, nil
}

// LoadJSON parses cfg from JSON, then fills in any field the document left
// unset with its documented default.
func LoadJSON(data []byte) (Config, error) {
	c := Config{}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errwrap.WrapError(errwrap.KindIO, err, "parsing config JSON")
	}
	c.applyDefaults()
	return c, nil
}

// env variable names consulted by LoadEnv.
const (
	envMaxConcurrent  = "SSHORCH_MAX_CONCURRENT_CONNECTIONS"
	envConnectTimeout = "SSHORCH_CONNECT_TIMEOUT"
	envCommandTimeout = "SSHORCH_COMMAND_TIMEOUT"
)

// LoadEnv starts from Default and overrides any field whose environment
// variable is set. Timeout variables are parsed with time.ParseDuration
// (e.g. "10s"); the concurrency variable is a plain integer.
func LoadEnv() (Config, error) {
	c := Default()

	if v := os.Getenv(envMaxConcurrent); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errwrap.WrapError(errwrap.KindValidation, err, "parsing %s", envMaxConcurrent)
		}
		c.MaxConcurrentConnections = n
	}
	if v := os.Getenv(envConnectTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errwrap.WrapError(errwrap.KindValidation, err, "parsing %s", envConnectTimeout)
		}
		c.ConnectTimeout = d
	}
	if v := os.Getenv(envCommandTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, errwrap.WrapError(errwrap.KindValidation, err, "parsing %s", envCommandTimeout)
		}
		c.CommandTimeout = d
	}

	return c, nil
}
