package aurora

import vk "github.com/vulkan-go/vulkan"

// enumerateNames runs the count-then-fill query pair and maps every entry
// to its name. list is sized by the first call's count.
func enumerateNames[T any](query func(count *uint32, list []T) vk.Result, name func(*T) string) (names []string, err error) {
	defer checkErr(&err)

	var count uint32
	orPanic(newError(query(&count, nil)))
	list := make([]T, count)
	orPanic(newError(query(&count, list)))
	names = make([]string, 0, count)
	for i := range list[:count] {
		names = append(names, name(&list[i]))
	}
	return names, nil
}

func extensionName(ext *vk.ExtensionProperties) string {
	ext.Deref()
	return vk.ToString(ext.ExtensionName[:])
}

// InstanceExtensions lists the instance extensions the loader offers.
func InstanceExtensions() ([]string, error) {
	return enumerateNames(func(count *uint32, list []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateInstanceExtensionProperties("", count, list)
	}, extensionName)
}

// DeviceExtensions lists the extensions of gpu.
func DeviceExtensions(gpu vk.PhysicalDevice) ([]string, error) {
	return enumerateNames(func(count *uint32, list []vk.ExtensionProperties) vk.Result {
		return vk.EnumerateDeviceExtensionProperties(gpu, "", count, list)
	}, extensionName)
}

// ValidationLayers lists the instance layers installed on the platform.
func ValidationLayers() ([]string, error) {
	return enumerateNames(vk.EnumerateInstanceLayerProperties, func(layer *vk.LayerProperties) string {
		layer.Deref()
		return vk.ToString(layer.LayerName[:])
	})
}
