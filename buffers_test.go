package aurora

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

func testMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	props := vk.PhysicalDeviceMemoryProperties{MemoryTypeCount: 3}
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	props.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	return props
}

func TestFindMemoryType(t *testing.T) {
	hostVisible := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	tests := []struct {
		name     string
		typeBits uint32
		flags    vk.MemoryPropertyFlagBits
		want     uint32
	}{
		{"device local", 0x7, vk.MemoryPropertyDeviceLocalBit, 0},
		{"first host visible", 0x7, vk.MemoryPropertyHostVisibleBit, 1},
		{"coherent", 0x7, hostVisible, 2},
		{"type bits filter", 0x4, vk.MemoryPropertyHostVisibleBit, 2},
		{"no flags takes first allowed", 0x6, 0, 1},
	}
	props := testMemoryProperties()
	for _, tt := range tests {
		got, err := FindMemoryType(props, tt.typeBits, tt.flags)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFindMemoryTypeUnsupported(t *testing.T) {
	props := testMemoryProperties()
	tests := []struct {
		typeBits uint32
		flags    vk.MemoryPropertyFlagBits
	}{
		{0x1, vk.MemoryPropertyHostVisibleBit},
		{0x7, vk.MemoryPropertyLazilyAllocatedBit},
		// Bits beyond MemoryTypeCount are ignored.
		{0x8, 0},
	}
	for _, tt := range tests {
		_, err := FindMemoryType(props, tt.typeBits, tt.flags)
		if !errors.Is(err, ErrUnsupportedMemoryType) {
			t.Errorf("bits %#x flags %#x: got %v", tt.typeBits, tt.flags, err)
		}
	}
}

func TestMeshBytes(t *testing.T) {
	mesh := Triangle()
	if got, want := len(mesh.vertexBytes()), 3*int(vertexStride); got != want {
		t.Errorf("vertex bytes %d, want %d", got, want)
	}
	if got := len(mesh.indexBytes()); got != 12 {
		t.Errorf("index bytes %d, want 12", got)
	}
	var empty Mesh
	if empty.vertexBytes() != nil || empty.indexBytes() != nil {
		t.Error("empty mesh should give nil bytes")
	}
}
