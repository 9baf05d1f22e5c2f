//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

const binary = "bin/vkpresent"

type Build mg.Namespace

// Builds the demo without validation layers, presenting with mailbox when available.
func (Build) Release() error {
	return goBuild()
}

// Builds the demo with validation layers enabled by default.
func (Build) Debug() error {
	return goBuild("debug")
}

// Builds the demo with FIFO presentation forced.
func (Build) Vsync() error {
	return goBuild("vsync")
}

type Test mg.Namespace

// Runs every package's tests.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
