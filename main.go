// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/cellarhq/cellar/cmd/cellar"

func main() {
	cmd.Execute()
}
