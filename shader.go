package aurora

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

//go:generate glslc shaders/triangle.vert -o build/shaders/triangle.vert.spv
//go:generate glslc shaders/triangle.frag -o build/shaders/triangle.frag.spv

// DefaultShaderDirs are searched in order when the config names none. They
// cover running from the repo root and from a build directory.
func DefaultShaderDirs() []string {
	return []string{
		filepath.Join("build", "shaders"),
		"shaders",
		filepath.Join("..", "build", "shaders"),
		filepath.Join("..", "shaders"),
	}
}

// LocateShader returns the path of name in the first directory that holds a
// regular file by that name.
func LocateShader(name string, dirs []string) (string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", errors.Wrapf(ErrShaderNotFound, "%s in %v", name, dirs)
}

// ReadShader locates name and reads its SPIR-V.
func ReadShader(name string, dirs []string) ([]byte, error) {
	path, err := LocateShader(name, dirs)
	if err != nil {
		return nil, err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Newf("shader %s: %d bytes is not SPIR-V", path, len(code))
	}
	return code, nil
}

func LoadShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if isError(ret) {
		return vk.NullShaderModule, errors.Wrap(newError(ret), "create shader module")
	}
	return module, nil
}
