// SPDX-License-Identifier: MPL-2.0

package main

import cmd "commodore-cli/cmd/commodore"

func main() {
	cmd.Execute()
}
