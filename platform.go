package aurora

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// platform owns the objects that live for the whole engine: instance, debug
// callback, surface, the selected adapter and the logical device.
type platform struct {
	log *slog.Logger

	instanceHandles
	surface vk.Surface

	adapter  AdapterInfo
	gpu      vk.PhysicalDevice
	families QueueFamilies
	memProps vk.PhysicalDeviceMemoryProperties

	device        vk.Device
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
}

// newPlatform brings up everything up to and including the logical device.
// On failure whatever was created is released again.
func newPlatform(win Window, appName string, log *slog.Logger) (p *platform, err error) {
	p = &platform{log: log, surface: vk.NullSurface}
	defer func() {
		if err != nil {
			p.destroy()
			p = nil
		}
	}()

	p.instanceHandles, err = createInstance(appName, win.RequiredInstanceExtensions(), log)
	if err != nil {
		return p, err
	}
	p.surface, err = win.CreateSurface(p.instance)
	if err != nil {
		return p, failure(ErrStartupFailure, ErrSurfaceUnsupported, "%v", err)
	}

	adapters, err := EnumerateAdapters(p.instance, p.surface)
	if err != nil {
		return p, err
	}
	selection, err := SelectAdapter(adapters, log)
	if err != nil {
		return p, err
	}
	p.adapter = selection.Adapter
	p.gpu = selection.Adapter.handle
	p.families = selection.Families
	p.memProps = memoryProperties(p.gpu)
	log.Log(context.Background(), startupLevel(), "adapter selected",
		"adapter", p.adapter.Name,
		"score", p.adapter.Score(),
		"graphics_family", p.families.Graphics,
		"present_family", p.families.Present)

	if err := p.createDevice(); err != nil {
		return p, err
	}
	return p, nil
}

func (p *platform) createDevice() error {
	extensions := newExtensionSet(p.adapter.Extensions, []string{vk.KhrSwapchainExtensionName}, nil)
	if missing := extensions.Missing(); len(missing) > 0 {
		return failure(ErrStartupFailure, ErrNoSuitableDevice, "missing device extensions %v", missing)
	}
	enabled := extensions.Enabled()
	queueInfos := queueCreateInfos(p.families)

	var device vk.Device
	ret := vk.CreateDevice(p.gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
	}, nil, &device)
	if isError(ret) {
		return errors.Mark(errors.Wrap(newError(ret), "create logical device"), ErrStartupFailure)
	}
	p.device = device

	vk.GetDeviceQueue(p.device, p.families.Graphics, 0, &p.graphicsQueue)
	p.presentQueue = p.graphicsQueue
	if p.families.Separate() {
		vk.GetDeviceQueue(p.device, p.families.Present, 0, &p.presentQueue)
	}
	return nil
}

// waitIdle blocks until the device has finished all submitted work.
func (p *platform) waitIdle() error {
	if p.device == nil {
		return nil
	}
	if ret := vk.DeviceWaitIdle(p.device); isError(ret) {
		return deviceLost(ret, "wait for device idle")
	}
	return nil
}

// destroy releases the device, surface, debug callback and instance in that
// order. It is safe to call on a partially built platform.
func (p *platform) destroy() {
	if p.device != nil {
		vk.DestroyDevice(p.device, nil)
		p.device = nil
	}
	if p.surface != vk.NullSurface {
		vk.DestroySurface(p.instance, p.surface, nil)
		p.surface = vk.NullSurface
	}
	p.instanceHandles.destroy()
}
