// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gosrc

import (
	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// ModFile returns a go.mod file for a module hosting generated packages.
// The module requires the given version of the prtcl runtime.
func ModFile(modulePath, goVersion, prtclVersion string) ([]byte, error) {
	if err := module.CheckPath(modulePath); err != nil {
		return nil, errors.Errorf("invalid module path: %v", err)
	}
	f := &modfile.File{}
	if err := f.AddModuleStmt(modulePath); err != nil {
		return nil, errors.Errorf("cannot set module path: %v", err)
	}
	if err := f.AddGoStmt(goVersion); err != nil {
		return nil, errors.Errorf("cannot set go version: %v", err)
	}
	if err := f.AddRequire(runtimeModule, prtclVersion); err != nil {
		return nil, errors.Errorf("cannot require %s: %v", runtimeModule, err)
	}
	f.Cleanup()
	return modfile.Format(f.Syntax), nil
}

const runtimeModule = "github.com/gx-org/prtcl"
