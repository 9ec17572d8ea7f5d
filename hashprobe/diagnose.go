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

package hashprobe

import (
	"github.com/sshorch/sshorch/session"
)

// ThreeWayReport compares the local source, the live remote destination,
// and a staged-but-not-yet-committed remote path, the same three values
// the original three_hash_demo walked through interactively. FileDeploy
// uses the local/staging comparison internally (§4.3 step 4); this export
// exists so operators can run the same comparison by hand when a transfer
// failed and they want to see all three digests at once.
type ThreeWayReport struct {
	Local        FileHashInfo
	Remote       FileHashInfo
	RemoteExists bool
	Staging      FileHashInfo
	StagingOK    bool
	Verdict      string
}

// Diagnose hashes all three locations and summarizes whether the staged
// upload matches the local source, and whether the live destination is
// already up to date.
func Diagnose(t session.Transport, localPath, remoteDest, stagingPath string) (ThreeWayReport, error) {
	var report ThreeWayReport

	local, err := LocalHash(localPath)
	if err != nil {
		return report, err
	}
	report.Local = local

	remote, remoteExists, err := RemoteHash(t, remoteDest)
	if err != nil {
		return report, err
	}
	report.Remote = remote
	report.RemoteExists = remoteExists

	staging, stagingExists, err := RemoteHash(t, stagingPath)
	if err != nil {
		return report, err
	}
	report.Staging = staging
	report.StagingOK = stagingExists && Match(local, staging)

	switch {
	case !stagingExists:
		report.Verdict = "staging file absent"
	case !report.StagingOK:
		report.Verdict = "staging file does not match local source"
	case remoteExists && Match(local, remote):
		report.Verdict = "destination already matches local source"
	default:
		report.Verdict = "staging file verified, ready to commit"
	}

	return report, nil
}
