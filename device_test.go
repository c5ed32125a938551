package aurora

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	graphicsFamily = QueueFamilyInfo{Flags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueTransferBit)}
	presentFamily  = QueueFamilyInfo{Flags: vk.QueueFlags(vk.QueueTransferBit), Present: true}
	unifiedFamily  = QueueFamilyInfo{Flags: vk.QueueFlags(vk.QueueGraphicsBit), Present: true}
)

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []QueueFamilyInfo
		want     QueueFamilies
		ok       bool
	}{
		{"unified", []QueueFamilyInfo{unifiedFamily}, QueueFamilies{0, 0}, true},
		{"separate", []QueueFamilyInfo{graphicsFamily, presentFamily}, QueueFamilies{0, 1}, true},
		{"first of each", []QueueFamilyInfo{presentFamily, unifiedFamily, graphicsFamily}, QueueFamilies{1, 0}, true},
		{"no present", []QueueFamilyInfo{graphicsFamily}, QueueFamilies{}, false},
		{"no graphics", []QueueFamilyInfo{presentFamily}, QueueFamilies{}, false},
		{"empty", nil, QueueFamilies{}, false},
	}
	for _, tt := range tests {
		got, ok := findQueueFamilies(tt.families)
		if ok != tt.ok {
			t.Errorf("%s: ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestQueueCreateInfos(t *testing.T) {
	if infos := queueCreateInfos(QueueFamilies{Graphics: 1, Present: 1}); len(infos) != 1 {
		t.Errorf("shared family: %d queue infos, want 1", len(infos))
	}
	infos := queueCreateInfos(QueueFamilies{Graphics: 0, Present: 3})
	if len(infos) != 2 || infos[0].QueueFamilyIndex != 0 || infos[1].QueueFamilyIndex != 3 {
		t.Errorf("separate families: %+v", infos)
	}
}

func adapter(name string, kind vk.PhysicalDeviceType, dim uint32, families ...QueueFamilyInfo) AdapterInfo {
	return AdapterInfo{
		Name:                name,
		Type:                kind,
		Extensions:          []string{vk.KhrSwapchainExtensionName},
		MaxImageDimension2D: dim,
		QueueFamilies:       families,
	}
}

func TestSelectAdapter(t *testing.T) {
	discreteNoChain := adapter("discrete", vk.PhysicalDeviceTypeDiscreteGpu, 16384, unifiedFamily)
	discreteNoChain.Extensions = []string{"VK_KHR_maintenance1"}
	integrated := adapter("integrated", vk.PhysicalDeviceTypeIntegratedGpu, 8192, graphicsFamily, presentFamily)
	discrete := adapter("discrete", vk.PhysicalDeviceTypeDiscreteGpu, 8192, unifiedFamily)
	headless := adapter("headless", vk.PhysicalDeviceTypeDiscreteGpu, 32768, graphicsFamily)

	tests := []struct {
		name     string
		adapters []AdapterInfo
		want     string
		families QueueFamilies
	}{
		{"missing swapchain extension loses", []AdapterInfo{discreteNoChain, integrated}, "integrated", QueueFamilies{0, 1}},
		{"discrete outranks integrated", []AdapterInfo{integrated, discrete}, "discrete", QueueFamilies{0, 0}},
		{"no present queue loses", []AdapterInfo{headless, integrated}, "integrated", QueueFamilies{0, 1}},
	}
	for _, tt := range tests {
		sel, err := SelectAdapter(tt.adapters, nil)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if sel.Adapter.Name != tt.want || sel.Families != tt.families {
			t.Errorf("%s: got %s %+v, want %s %+v", tt.name, sel.Adapter.Name, sel.Families, tt.want, tt.families)
		}
	}
}

func TestSelectAdapterTieGoesToFirst(t *testing.T) {
	first := adapter("first", vk.PhysicalDeviceTypeIntegratedGpu, 4096, unifiedFamily)
	second := adapter("second", vk.PhysicalDeviceTypeIntegratedGpu, 4096, unifiedFamily)
	sel, err := SelectAdapter([]AdapterInfo{first, second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sel.Adapter.Name != "first" {
		t.Errorf("got %s, want first", sel.Adapter.Name)
	}
}

func TestSelectAdapterNoneSuitable(t *testing.T) {
	bare := adapter("bare", vk.PhysicalDeviceTypeCpu, 1024, graphicsFamily)
	bare.Extensions = nil
	for _, adapters := range [][]AdapterInfo{nil, {bare}} {
		_, err := SelectAdapter(adapters, nil)
		if !errors.Is(err, ErrNoSuitableDevice) || !errors.Is(err, ErrStartupFailure) {
			t.Errorf("%d adapters: got %v", len(adapters), err)
		}
	}
}

func TestAdapterScore(t *testing.T) {
	a := AdapterInfo{Type: vk.PhysicalDeviceTypeDiscreteGpu, SamplerAnisotropy: true, GeometryShader: true, MaxImageDimension2D: 16384}
	if got, want := a.Score(), uint64(discreteBonus+anisotropyBonus+geometryBonus+16384); got != want {
		t.Errorf("score %d, want %d", got, want)
	}
	b := AdapterInfo{Type: vk.PhysicalDeviceTypeIntegratedGpu, MaxImageDimension2D: 8192}
	if got := b.Score(); got != 8192 {
		t.Errorf("score %d, want 8192", got)
	}
}
