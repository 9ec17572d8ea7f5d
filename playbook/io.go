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

package playbook

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/sshorch/sshorch/internal/errwrap"
)

// LoadYAML parses the name/tasks YAML schema into a Playbook.
func LoadYAML(data []byte) (Playbook, error) {
	var pb Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return Playbook{}, errwrap.WrapError(errwrap.KindIO, err, "parsing playbook YAML")
	}
	return pb, nil
}

// LoadJSON parses the equivalent JSON schema into a Playbook.
func LoadJSON(data []byte) (Playbook, error) {
	var pb Playbook
	if err := json.Unmarshal(data, &pb); err != nil {
		return Playbook{}, errwrap.WrapError(errwrap.KindIO, err, "parsing playbook JSON")
	}
	return pb, nil
}

// String gives a short human summary, useful in logs.
func (pb Playbook) String() string {
	return fmt.Sprintf("Playbook(%q, %d tasks)", pb.Name, len(pb.Tasks))
}
