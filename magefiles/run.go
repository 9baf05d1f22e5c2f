//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the debug demo and runs it with the sample configuration.
func (Run) Demo() error {
	mg.Deps(Build.Debug)
	fmt.Println("Run demo...")
	if _, err := executeCmd(binary, withArgs("vkpresent.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
