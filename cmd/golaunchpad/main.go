/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"golaunchpad/internal/config"
	"golaunchpad/internal/crash"
	applog "golaunchpad/internal/log"
)

func main() {
	applog.Init(applog.FromEnv())
	a := &cliApp{out: color.Output, errOut: color.Error}
	dir, _ := config.Dir()
	defer crash.Recover(dir, a)

	if err := newRootCmd(a).Execute(); err != nil {
		_, _ = fmt.Fprintln(a.errOut, color.RedString("error:"), err)
		a.closeService()
		os.Exit(1)
	}
}
