package aurora

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocateShaderSearchOrder(t *testing.T) {
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	writeFile(t, filepath.Join(second, "tri-vert.spv"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(first, "tri-frag.spv"), []byte{1, 2, 3, 4})
	writeFile(t, filepath.Join(second, "tri-frag.spv"), []byte{1, 2, 3, 4})
	// A directory with the shader's name is not a shader.
	if err := os.MkdirAll(filepath.Join(first, "tri-vert.spv"), 0o755); err != nil {
		t.Fatal(err)
	}

	dirs := []string{filepath.Join(root, "missing"), first, second}
	tests := []struct {
		name, want string
	}{
		{"tri-vert.spv", filepath.Join(second, "tri-vert.spv")},
		{"tri-frag.spv", filepath.Join(first, "tri-frag.spv")},
	}
	for _, tt := range tests {
		got, err := LocateShader(tt.name, dirs)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}

	if _, err := LocateShader("absent.spv", dirs); !errors.Is(err, ErrShaderNotFound) {
		t.Errorf("absent shader: got %v", err)
	}
}

func TestReadShader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok.spv"), []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0})
	writeFile(t, filepath.Join(dir, "empty.spv"), nil)
	writeFile(t, filepath.Join(dir, "odd.spv"), []byte{1, 2, 3})

	code, err := ReadShader("ok.spv", []string{dir})
	if err != nil || len(code) != 8 {
		t.Errorf("ok.spv: %d bytes, %v", len(code), err)
	}
	for _, name := range []string{"empty.spv", "odd.spv"} {
		if _, err := ReadShader(name, []string{dir}); err == nil {
			t.Errorf("%s accepted", name)
		}
	}
	if _, err := ReadShader("none.spv", []string{dir}); !errors.Is(err, ErrShaderNotFound) {
		t.Errorf("none.spv: got %v", err)
	}
}

func TestDefaultShaderDirs(t *testing.T) {
	dirs := DefaultShaderDirs()
	if len(dirs) == 0 || dirs[0] != filepath.Join("build", "shaders") {
		t.Errorf("dirs %v", dirs)
	}
}
