package aurora

import (
	"context"
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// debugLog receives validation messages. The report callback is a C entry
// point and cannot carry a Go closure.
var debugLog atomic.Pointer[slog.Logger]

type instanceHandles struct {
	instance      vk.Instance
	debugCallback vk.DebugReportCallback
}

// createInstance creates the vulkan instance with the window's required
// extensions. Built with aurora_validation it also enables the Khronos
// validation layer and routes debug reports into log.
func createInstance(appName string, windowExtensions []string, log *slog.Logger) (h instanceHandles, err error) {
	available, err := InstanceExtensions()
	if err != nil {
		return h, failure(ErrStartupFailure, err, "enumerate instance extensions")
	}
	var wanted []string
	if validationEnabled {
		wanted = append(wanted, vk.ExtDebugReportExtensionName)
	}
	extensions := newExtensionSet(available, windowExtensions, wanted)
	if missing := extensions.Missing(); len(missing) > 0 {
		return h, failure(ErrStartupFailure, ErrSurfaceUnsupported, "missing instance extensions %v", missing)
	}
	if missing := extensions.MissingWanted(); len(missing) > 0 {
		log.Warn("optional instance extensions unavailable", "extensions", missing)
	}

	var layers []string
	if validationEnabled {
		actual, err := ValidationLayers()
		if err != nil {
			return h, failure(ErrStartupFailure, err, "enumerate validation layers")
		}
		layerSet := newExtensionSet(actual, nil, []string{validationLayerName})
		if missing := layerSet.MissingWanted(); len(missing) > 0 {
			log.Warn("validation layer unavailable", "layers", missing)
		}
		layers = layerSet.Enabled()
	}

	enabled := extensions.Enabled()
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   safeString(appName),
			ApplicationVersion: vk.MakeVersion(0, 1, 0),
			PEngineName:        safeString("Aurora3D"),
			EngineVersion:      vk.MakeVersion(0, 1, 0),
			ApiVersion:         vk.MakeVersion(1, 0, 0),
		},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &h.instance)
	if isError(ret) {
		return h, errors.Mark(errors.Wrap(newError(ret), "create instance"), ErrStartupFailure)
	}
	if err := vk.InitInstance(h.instance); err != nil {
		vk.DestroyInstance(h.instance, nil)
		return instanceHandles{}, errors.Mark(errors.Wrap(err, "load instance functions"), ErrStartupFailure)
	}
	log.Log(context.Background(), startupLevel(), "vulkan instance created",
		"extensions", len(enabled),
		"layers", len(layers))

	if validationEnabled && extensions.has(vk.ExtDebugReportExtensionName) {
		debugLog.Store(log)
		ret := vk.CreateDebugReportCallback(h.instance, &vk.DebugReportCallbackCreateInfo{
			SType: vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
				vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReport,
		}, nil, &h.debugCallback)
		if isError(ret) {
			log.Warn("debug report callback unavailable", "error", newError(ret))
		}
	}
	return h, nil
}

func (h *instanceHandles) destroy() {
	if h.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(h.instance, h.debugCallback, nil)
		h.debugCallback = vk.NullDebugReportCallback
	}
	if h.instance != nil {
		vk.DestroyInstance(h.instance, nil)
		h.instance = nil
	}
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	log := debugLog.Load()
	if log == nil {
		return vk.Bool32(vk.False)
	}
	level := slog.LevelInfo
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		level = slog.LevelError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		level = slog.LevelWarn
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		level = slog.LevelDebug
	}
	log.Log(context.Background(), level, pMessage, "layer", pLayerPrefix, "code", messageCode)
	return vk.Bool32(vk.False)
}
