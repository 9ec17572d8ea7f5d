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

import "testing"

const yamlFixture = `
name: provision
tasks:
  - name: push-config
    task_type: copy
    src: /local/app.conf
    dest: /etc/app.conf
    options:
      owner: app
      group: app
      mode: "640"
      backup: true
      create_dirs: true
      precomputed_hash: deadbeef
  - name: create-service-account
    task_type: user
    user:
      name: svc-app
      state: present
      home: /srv/app
      shell: /usr/sbin/nologin
      create_home: true
      groups: [docker]
      expires: "2027-01-01"
`

func TestLoadYAMLBindsNestedOptionsAndUser(t *testing.T) {
	pb, err := LoadYAML([]byte(yamlFixture))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(pb.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(pb.Tasks))
	}

	copyTask := pb.Tasks[0]
	opts := copyTask.Options
	if opts.Owner != "app" || opts.Group != "app" || opts.Mode != "640" {
		t.Fatalf("owner/group/mode did not bind: %+v", opts)
	}
	if !opts.Backup || !opts.CreateDirs {
		t.Fatalf("backup/create_dirs did not bind: %+v", opts)
	}
	if opts.PrecomputedHash != "deadbeef" {
		t.Fatalf("precomputed_hash did not bind: %+v", opts)
	}

	userTask := pb.Tasks[1]
	u := userTask.User
	if u.Name != "svc-app" || u.State != "present" {
		t.Fatalf("name/state did not bind: %+v", u)
	}
	if u.HomeDir != "/srv/app" || u.Shell != "/usr/sbin/nologin" {
		t.Fatalf("home/shell did not bind: %+v", u)
	}
	if !u.CreateHome {
		t.Fatalf("create_home did not bind: %+v", u)
	}
	if len(u.Groups) != 1 || u.Groups[0] != "docker" {
		t.Fatalf("groups did not bind: %+v", u)
	}
	if u.Expires != "2027-01-01" {
		t.Fatalf("expires did not bind: %+v", u)
	}
}

const jsonFixture = `{
  "name": "provision",
  "tasks": [
    {
      "name": "push-config",
      "task_type": "copy",
      "src": "/local/app.conf",
      "dest": "/etc/app.conf",
      "options": {
        "owner": "app",
        "create_dirs": true,
        "precomputed_hash": "deadbeef"
      }
    }
  ]
}`

func TestLoadJSONBindsNestedOptions(t *testing.T) {
	pb, err := LoadJSON([]byte(jsonFixture))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	opts := pb.Tasks[0].Options
	if opts.Owner != "app" || !opts.CreateDirs || opts.PrecomputedHash != "deadbeef" {
		t.Fatalf("options did not bind from JSON: %+v", opts)
	}
}
