package aurora

import (
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

const (
	discreteBonus   = 1000
	anisotropyBonus = 100
	geometryBonus   = 50
)

// AdapterInfo is an immutable snapshot of a physical device, taken once so
// selection can run without touching the driver.
type AdapterInfo struct {
	Index               int
	Name                string
	Type                vk.PhysicalDeviceType
	Extensions          []string
	SamplerAnisotropy   bool
	GeometryShader      bool
	MaxImageDimension2D uint32
	QueueFamilies       []QueueFamilyInfo

	handle vk.PhysicalDevice
}

func (a AdapterInfo) hasExtension(name string) bool {
	for _, ext := range a.Extensions {
		if trimNull(ext) == trimNull(name) {
			return true
		}
	}
	return false
}

// Score ranks an adapter that already passed the extension and queue filters.
func (a AdapterInfo) Score() uint64 {
	var score uint64
	if a.Type == vk.PhysicalDeviceTypeDiscreteGpu {
		score += discreteBonus
	}
	if a.SamplerAnisotropy {
		score += anisotropyBonus
	}
	if a.GeometryShader {
		score += geometryBonus
	}
	return score + uint64(a.MaxImageDimension2D)
}

// Selection is the outcome of SelectAdapter.
type Selection struct {
	Adapter  AdapterInfo
	Families QueueFamilies
}

// SelectAdapter picks the best-scoring adapter that has the swapchain
// extension plus graphics and present queue families. Ties go to the adapter
// enumerated first.
func SelectAdapter(adapters []AdapterInfo, log *slog.Logger) (Selection, error) {
	if log == nil {
		log = newNopLogger()
	}
	var (
		best      Selection
		bestScore uint64
		found     bool
	)
	for _, adapter := range adapters {
		if !adapter.hasExtension(vk.KhrSwapchainExtensionName) {
			log.Debug("adapter rejected", "adapter", adapter.Name, "reason", "missing swapchain extension")
			continue
		}
		families, ok := findQueueFamilies(adapter.QueueFamilies)
		if !ok {
			log.Debug("adapter rejected", "adapter", adapter.Name, "reason", "no graphics or present queue family")
			continue
		}
		score := adapter.Score()
		log.Debug("adapter scored", "adapter", adapter.Name, "score", score)
		if !found || score > bestScore {
			best = Selection{Adapter: adapter, Families: families}
			bestScore = score
			found = true
		}
	}
	if !found {
		return Selection{}, failure(ErrStartupFailure, ErrNoSuitableDevice, "%d adapters inspected", len(adapters))
	}
	return best, nil
}

// DescribeAdapter snapshots gpu. Present support is evaluated against surface.
func DescribeAdapter(gpu vk.PhysicalDevice, index int, surface vk.Surface) (AdapterInfo, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()

	extensions, err := DeviceExtensions(gpu)
	if err != nil {
		return AdapterInfo{}, err
	}

	return AdapterInfo{
		Index:               index,
		Name:                vk.ToString(props.DeviceName[:]),
		Type:                props.DeviceType,
		Extensions:          extensions,
		SamplerAnisotropy:   features.SamplerAnisotropy == vk.True,
		GeometryShader:      features.GeometryShader == vk.True,
		MaxImageDimension2D: props.Limits.MaxImageDimension2D,
		QueueFamilies:       queueFamilyInfos(gpu, surface),
		handle:              gpu,
	}, nil
}

// EnumerateAdapters snapshots every physical device the instance exposes.
func EnumerateAdapters(instance vk.Instance, surface vk.Surface) ([]AdapterInfo, error) {
	var count uint32
	ret := vk.EnumeratePhysicalDevices(instance, &count, nil)
	if isError(ret) {
		return nil, resultFailure(ErrStartupFailure, ErrNoSuitableDevice, ret, "enumerate physical devices")
	}
	if count == 0 {
		return nil, failure(ErrStartupFailure, ErrNoSuitableDevice, "no physical devices found")
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(instance, &count, gpus)
	if isError(ret) {
		return nil, resultFailure(ErrStartupFailure, ErrNoSuitableDevice, ret, "enumerate physical devices")
	}
	adapters := make([]AdapterInfo, 0, count)
	for i, gpu := range gpus {
		info, err := DescribeAdapter(gpu, i, surface)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, info)
	}
	return adapters, nil
}
