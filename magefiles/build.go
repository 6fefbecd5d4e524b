//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const shaderDir = "assets/shaders"

var shaderSources = []string{
	"triangle.vert",
	"triangle.frag",
	"gui.vert",
	"gui.frag",
}

type Build mg.Namespace

// Compiles every GLSL shader to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the testbed binary.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the full test suite.
func (Build) Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for _, source := range shaderSources {
		input := filepath.Join(shaderDir, source)
		output := input + ".spv"
		if _, err := executeCmd("glslc", withArgs(input, "-o", output), withStream()); err != nil {
			return fmt.Errorf("failed to compile %s: %w", input, err)
		}
	}
	return nil
}
