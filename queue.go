package aurora

import vk "github.com/vulkan-go/vulkan"

// QueueFamilyInfo is the part of a queue family the selector cares about.
type QueueFamilyInfo struct {
	Flags   vk.QueueFlags
	Present bool
}

func (q QueueFamilyInfo) Graphics() bool {
	return q.Flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
}

// QueueFamilies holds the chosen family indices. Graphics and Present may be equal.
type QueueFamilies struct {
	Graphics uint32
	Present  uint32
}

// Separate is true when presentation happens on its own family.
func (q QueueFamilies) Separate() bool {
	return q.Graphics != q.Present
}

// Indices lists the distinct families, graphics first.
func (q QueueFamilies) Indices() []uint32 {
	if q.Separate() {
		return []uint32{q.Graphics, q.Present}
	}
	return []uint32{q.Graphics}
}

// findQueueFamilies picks the first graphics-capable family and the first
// present-capable family independently.
func findQueueFamilies(families []QueueFamilyInfo) (QueueFamilies, bool) {
	var (
		result      QueueFamilies
		hasGraphics bool
		hasPresent  bool
	)
	for i, family := range families {
		if !hasGraphics && family.Graphics() {
			result.Graphics = uint32(i)
			hasGraphics = true
		}
		if !hasPresent && family.Present {
			result.Present = uint32(i)
			hasPresent = true
		}
		if hasGraphics && hasPresent {
			break
		}
	}
	return result, hasGraphics && hasPresent
}

// queueFamilyInfos reads the queue family properties of gpu along with
// present support for surface.
func queueFamilyInfos(gpu vk.PhysicalDevice, surface vk.Surface) []QueueFamilyInfo {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	if count == 0 {
		return nil
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	infos := make([]QueueFamilyInfo, count)
	for i := range props {
		props[i].Deref()
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &supportsPresent)
		infos[i] = QueueFamilyInfo{
			Flags:   props[i].QueueFlags,
			Present: supportsPresent.B(),
		}
	}
	return infos
}

// queueCreateInfos requests one queue per distinct family.
func queueCreateInfos(families QueueFamilies) []vk.DeviceQueueCreateInfo {
	indices := families.Indices()
	infos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		infos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}
	return infos
}
