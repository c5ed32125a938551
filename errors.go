package aurora

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Error classes. Every error returned by the engine is marked with exactly one
// of these so callers can decide policy with errors.Is.
var (
	// ErrStartupFailure marks anything that aborts Initialize.
	ErrStartupFailure = errors.New("startup failure")
	// ErrRecreationFailure marks a failed chain rebuild. The frame loop logs it and retries.
	ErrRecreationFailure = errors.New("recreation failure")
	// ErrFatalDevice marks acquire, submit and present failures that end the frame loop.
	ErrFatalDevice = errors.New("fatal device error")
)

// Named failures.
var (
	ErrNoSuitableDevice          = errors.New("no suitable device")
	ErrSurfaceUnsupported        = errors.New("surface unsupported")
	ErrChainCreationFailed       = errors.New("chain creation failed")
	ErrFramebufferCreationFailed = errors.New("framebuffer creation failed")
	ErrShaderNotFound            = errors.New("shader not found")
	ErrPipelineCreationFailed    = errors.New("pipeline creation failed")
	ErrUnsupportedMemoryType     = errors.New("unsupported memory type")
	ErrDeviceLost                = errors.New("device lost")
)

// errSurfaceStale is the out-of-date/suboptimal signal. It never leaves the scheduler.
var errSurfaceStale = errors.New("presentation surface stale")

func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// newError converts a vulkan result into an error carrying a stack trace.
func newError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return errors.Newf("vulkan error: %s (%d)", vk.Error(ret).Error(), ret)
}

// failure wraps kind with context and marks it with class.
func failure(class, kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(kind, format, args...), class)
}

// resultFailure is failure for a vulkan result.
func resultFailure(class, kind error, ret vk.Result, op string) error {
	return errors.Mark(errors.Wrapf(kind, "%s: %v", op, newError(ret)), class)
}

func deviceLost(ret vk.Result, op string) error {
	return resultFailure(ErrFatalDevice, ErrDeviceLost, ret, op)
}

func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = errors.WithStack(e)
			return
		}
		*err = errors.New(fmt.Sprintf("%+v", v))
	}
}
