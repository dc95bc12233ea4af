// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/coralprotocol/coral-server-dist/cmd/coralpkg"

func main() {
	cmd.Execute()
}
