// Command schleubenctl lists and edits people, addresses and telephone
// connections through the readonly and mutable services, resolving every
// call through a role-tagged endpoint cache.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
