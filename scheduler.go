package aurora

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

// frameBackend is the GPU side of the frame loop. Slots index the
// synchronization objects and rotate every frame. Images index everything
// tied to a chain image and arrive in whatever order the chain returns them.
type frameBackend interface {
	SlotCount() int
	ImageCount() int
	// WaitSlot blocks until the slot's previous submission has finished.
	WaitSlot(slot int) error
	// ResetSlot unsignals the slot fence ahead of a submit.
	ResetSlot(slot int) error
	// Acquire returns the next chain image, signalling the slot's acquire
	// semaphore. An out-of-date chain returns errSurfaceStale.
	Acquire(slot int) (uint32, error)
	WriteFrameData(image uint32, m *[16]float32)
	Record(image uint32) error
	Submit(slot int, image uint32) error
	// Present queues image for display. Out-of-date and suboptimal chains
	// return errSurfaceStale after the image has been queued.
	Present(slot int, image uint32) error
	// Rebuild idles the device and recreates the chain and everything sized by it.
	Rebuild() error
}

// SchedulerStats counts what the frame loop has done since it started.
type SchedulerStats struct {
	Frames          uint64
	Rebuilds        uint64
	RebuildFailures uint64
	StaleAcquires   uint64
}

// FrameScheduler drives acquire, record, submit and present over a fixed set
// of frame slots. It is not safe for concurrent use.
type FrameScheduler struct {
	backend   frameBackend
	frameData FrameDataWriter
	log       *slog.Logger
	metrics   *Metrics

	currentFrame int
	// imagesInFlight maps a chain image to the slot that last submitted
	// work for it, or -1.
	imagesInFlight  []int
	transform       [16]float32
	needsRebuild    bool
	resizeRequested bool
	stats           SchedulerStats
}

func newFrameScheduler(backend frameBackend, frameData FrameDataWriter, log *slog.Logger, metrics *Metrics) *FrameScheduler {
	s := &FrameScheduler{
		backend:   backend,
		frameData: frameData,
		log:       log,
		metrics:   metrics,
	}
	s.transform = identityMatrix()
	s.resetImageTracking()
	return s
}

func identityMatrix() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (s *FrameScheduler) resetImageTracking() {
	n := s.backend.ImageCount()
	if cap(s.imagesInFlight) < n {
		s.imagesInFlight = make([]int, n)
	}
	s.imagesInFlight = s.imagesInFlight[:n]
	for i := range s.imagesInFlight {
		s.imagesInFlight[i] = -1
	}
}

// CurrentFrame is the slot the next DrawFrame will use.
func (s *FrameScheduler) CurrentFrame() int {
	return s.currentFrame
}

func (s *FrameScheduler) Stats() SchedulerStats {
	return s.stats
}

// RequestRebuild asks for a chain rebuild after the next present, as when
// the window has been resized.
func (s *FrameScheduler) RequestRebuild() {
	s.resizeRequested = true
}

// DrawFrame runs one iteration of the frame loop. It returns an error only
// when the device can no longer be used; such errors are marked
// ErrFatalDevice. A stale chain or a failed rebuild is handled here and
// leaves the loop running.
func (s *FrameScheduler) DrawFrame() error {
	if s.needsRebuild {
		if err := s.rebuild("retry"); err != nil {
			return err
		}
		if s.needsRebuild {
			return nil
		}
	}

	start := hrtime.Now()
	slot := s.currentFrame

	if err := s.backend.WaitSlot(slot); err != nil {
		return fatalFrameError(err, "wait for frame slot %d", slot)
	}

	image, err := s.backend.Acquire(slot)
	if errors.Is(err, errSurfaceStale) {
		s.stats.StaleAcquires++
		s.metrics.staleAcquire()
		return s.rebuild("acquire out of date")
	}
	if err != nil {
		return fatalFrameError(err, "acquire image on slot %d", slot)
	}
	if int(image) >= len(s.imagesInFlight) {
		return fatalFrameError(errors.Newf("image %d of %d", image, len(s.imagesInFlight)), "acquire")
	}

	// Another slot may still be rendering into this image.
	if owner := s.imagesInFlight[image]; owner >= 0 && owner != slot {
		if err := s.backend.WaitSlot(owner); err != nil {
			return fatalFrameError(err, "wait for image %d owned by slot %d", image, owner)
		}
	}
	s.imagesInFlight[image] = slot

	if s.frameData != nil {
		s.frameData.WriteFrameData(image, &s.transform)
	}
	s.backend.WriteFrameData(image, &s.transform)

	if err := s.backend.ResetSlot(slot); err != nil {
		return fatalFrameError(err, "reset frame slot %d", slot)
	}
	if err := s.backend.Record(image); err != nil {
		return fatalFrameError(err, "record image %d", image)
	}
	if err := s.backend.Submit(slot, image); err != nil {
		return fatalFrameError(err, "submit slot %d image %d", slot, image)
	}

	err = s.backend.Present(slot, image)
	stale := errors.Is(err, errSurfaceStale)
	if err != nil && !stale {
		return fatalFrameError(err, "present image %d", image)
	}
	s.stats.Frames++
	s.metrics.framePresented(hrtime.Since(start))

	if stale || s.resizeRequested {
		reason := "present out of date"
		if !stale {
			reason = "resize"
		}
		if err := s.rebuild(reason); err != nil {
			return err
		}
	}
	s.currentFrame = (slot + 1) % s.backend.SlotCount()
	return nil
}

// rebuild recreates the chain. A failure is logged and leaves needsRebuild
// set so the next frame retries; only device loss is returned.
func (s *FrameScheduler) rebuild(reason string) error {
	s.resizeRequested = false
	if err := s.backend.Rebuild(); err != nil {
		if errors.Is(err, ErrFatalDevice) {
			return err
		}
		s.needsRebuild = true
		s.stats.RebuildFailures++
		s.metrics.rebuildFailed()
		err = errors.Mark(errors.Wrapf(err, "rebuild after %s", reason), ErrRecreationFailure)
		s.log.Error("presentation chain rebuild failed", "reason", reason, "error", err)
		return nil
	}
	s.needsRebuild = false
	s.stats.Rebuilds++
	s.metrics.rebuilt()
	s.resetImageTracking()
	s.currentFrame %= s.backend.SlotCount()
	s.log.Debug("presentation chain rebuilt",
		"reason", reason,
		"images", s.backend.ImageCount(),
		"slots", s.backend.SlotCount())
	return nil
}

// fatalFrameError marks err as device loss unless the backend already did.
func fatalFrameError(err error, format string, args ...interface{}) error {
	if errors.Is(err, ErrFatalDevice) {
		return errors.Wrapf(err, format, args...)
	}
	err = errors.Mark(errors.Wrapf(err, format, args...), ErrDeviceLost)
	return errors.Mark(err, ErrFatalDevice)
}
