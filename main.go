// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/chunklink/chunklink/cmd/chunklink"

func main() {
	cmd.Execute()
}
