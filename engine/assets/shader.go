package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadShader reads a compiled SPIR-V blob from disk.
func LoadShader(path string) ([]byte, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader %s: %w", path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s is not valid SPIR-V (%d bytes)", path, len(code))
	}
	return code, nil
}

// IsShaderFile reports whether a path looks like a compiled shader.
func IsShaderFile(path string) bool {
	return filepath.Ext(path) == ".spv"
}
