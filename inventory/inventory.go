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

// Package inventory holds the named catalog of hosts and groups the engine
// operates on. It is pure data: no network, no filesystem beyond (de)serializing
// itself.
package inventory

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/sshorch/sshorch/internal/errwrap"
)

// HostCredentials describes one SSH-reachable target. It is immutable once
// constructed: callers build a new value rather than mutating fields on a
// shared one.
type HostCredentials struct {
	Hostname       string `yaml:"hostname" json:"hostname"`
	Port           uint16 `yaml:"port,omitempty" json:"port,omitempty"`
	Username       string `yaml:"username" json:"username"`
	Password       string `yaml:"password,omitempty" json:"password,omitempty"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty" json:"private_key_path,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty" json:"passphrase,omitempty"`
}

// DefaultPort is used whenever a HostCredentials entry omits Port.
const DefaultPort uint16 = 22

// EffectivePort returns Port, or DefaultPort if it's unset.
func (h HostCredentials) EffectivePort() uint16 {
	if h.Port == 0 {
		return DefaultPort
	}
	return h.Port
}

// Validate checks that exactly one auth method is configured.
func (h HostCredentials) Validate() error {
	if h.Hostname == "" {
		return errwrap.NewError(errwrap.KindIO, "hostname is required")
	}
	if h.Username == "" {
		return errwrap.NewError(errwrap.KindIO, "username is required")
	}
	hasPassword := h.Password != ""
	hasKey := h.PrivateKeyPath != ""
	if hasPassword == hasKey {
		return errwrap.NewError(errwrap.KindIO, "exactly one of password or private_key_path must be set")
	}
	return nil
}

// fileFormat mirrors the on-disk schema: hosts map plus groups map.
type fileFormat struct {
	Hosts  map[string]HostCredentials `yaml:"hosts" json:"hosts"`
	Groups map[string][]string        `yaml:"groups" json:"groups"`
}

// Inventory is a named mapping from host id to credentials, plus named
// ordered groups of host ids. Host ids are unique; there is no uniqueness
// constraint between groups.
type Inventory struct {
	hosts  map[string]HostCredentials
	groups map[string][]string
}

// New creates an empty Inventory.
func New() *Inventory {
	return &Inventory{
		hosts:  map[string]HostCredentials{},
		groups: map[string][]string{},
	}
}

// AddHost registers a host id with its credentials, overwriting any
// previous entry with the same id.
func (inv *Inventory) AddHost(id string, creds HostCredentials) {
	inv.hosts[id] = creds
}

// AddGroup registers a named, ordered group of host ids.
func (inv *Inventory) AddGroup(name string, hostIDs []string) {
	inv.groups[name] = append([]string(nil), hostIDs...)
}

// Host looks up a single host's credentials.
func (inv *Inventory) Host(id string) (HostCredentials, bool) {
	h, ok := inv.hosts[id]
	return h, ok
}

// Group looks up a named group's ordered host ids.
func (inv *Inventory) Group(name string) ([]string, bool) {
	g, ok := inv.groups[name]
	return g, ok
}

// AllHosts returns every host id in the inventory. Order is not
// significant; callers that need determinism should sort it.
func (inv *Inventory) AllHosts() []string {
	ids := make([]string, 0, len(inv.hosts))
	for id := range inv.hosts {
		ids = append(ids, id)
	}
	return ids
}

// Validate checks every host's credentials.
func (inv *Inventory) Validate() error {
	var reterr error
	for id, creds := range inv.hosts {
		if err := creds.Validate(); err != nil {
			reterr = errwrap.Append(reterr, errwrap.Wrapf(err, "host %q", id))
		}
	}
	return reterr
}

func (inv *Inventory) toFile() fileFormat {
	return fileFormat{Hosts: inv.hosts, Groups: inv.groups}
}

func (inv *Inventory) fromFile(f fileFormat) {
	if f.Hosts == nil {
		f.Hosts = map[string]HostCredentials{}
	}
	if f.Groups == nil {
		f.Groups = map[string][]string{}
	}
	inv.hosts = f.Hosts
	inv.groups = f.Groups
}

// MarshalYAML serializes the inventory to the `hosts`/`groups` schema.
func (inv *Inventory) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(inv.toFile())
}

// UnmarshalYAML parses the `hosts`/`groups` YAML schema into inv.
func (inv *Inventory) UnmarshalYAML(data []byte) error {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errwrap.WrapError(errwrap.KindIO, err, "parsing inventory YAML")
	}
	inv.fromFile(f)
	return nil
}

// MarshalJSON serializes the inventory to the equivalent JSON schema.
func (inv *Inventory) MarshalJSON() ([]byte, error) {
	return json.Marshal(inv.toFile())
}

// UnmarshalJSON parses the JSON schema into inv.
func (inv *Inventory) UnmarshalJSON(data []byte) error {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return errwrap.WrapError(errwrap.KindIO, err, "parsing inventory JSON")
	}
	inv.fromFile(f)
	return nil
}

// LoadYAML is a convenience constructor.
func LoadYAML(data []byte) (*Inventory, error) {
	inv := New()
	if err := inv.UnmarshalYAML(data); err != nil {
		return nil, err
	}
	return inv, nil
}

// LoadJSON is a convenience constructor.
func LoadJSON(data []byte) (*Inventory, error) {
	inv := New()
	if err := inv.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return inv, nil
}

// String gives a short human summary, useful in logs.
func (inv *Inventory) String() string {
	return fmt.Sprintf("Inventory(%d hosts, %d groups)", len(inv.hosts), len(inv.groups))
}
