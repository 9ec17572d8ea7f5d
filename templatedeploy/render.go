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

package templatedeploy

import (
	"bytes"
	"os"
	"strings"

	"github.com/nikolalohinski/gonja/v2"
	"github.com/nikolalohinski/gonja/v2/exec"

	"github.com/sshorch/sshorch/internal/errwrap"
)

// Render reads srcPath and renders it against vars with a Jinja2-compatible
// engine supporting {{ var }}, {% if %}/{% else %}/{% endif %}, {% for %}
// with loop.index, and the upper/lower/capitalize/title/truncate filters —
// all standard Jinja surface that gonja implements out of the box.
// Carriage returns are stripped so deployed files use LF line endings
// regardless of the host the orchestrator runs on.
func Render(srcPath string, vars map[string]interface{}) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", errwrap.WrapError(errwrap.KindIO, err, "reading template %q", srcPath)
	}

	tpl, err := gonja.FromBytes(data)
	if err != nil {
		return "", errwrap.WrapError(errwrap.KindTemplate, err, "parsing template %q", srcPath)
	}

	var out bytes.Buffer
	if err := tpl.Execute(&out, exec.NewContext(vars)); err != nil {
		return "", errwrap.WrapError(errwrap.KindTemplate, err, "rendering template %q", srcPath)
	}

	return strings.ReplaceAll(out.String(), "\r", ""), nil
}
