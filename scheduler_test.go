package aurora

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

type slotImage struct {
	slot  int
	image uint32
}

// fakeBackend models GPU work as finishing only once the scheduler waits on
// the slot fence, so any missing wait shows up as overlapping work.
type fakeBackend struct {
	t *testing.T

	slots  int
	images int
	seq    []uint32
	seqPos int

	acquireCalls int
	acquireErrs  map[int]error
	presentCalls int
	presentErrs  map[int]error
	waitErr      error
	submitErr    error
	rebuildErrs  []error

	slotsAfterRebuild  int
	imagesAfterRebuild int

	pending    []bool
	imageOwner map[uint32]int

	waits    []int
	resets   []int
	records  []uint32
	written  map[uint32]float32
	submits  []slotImage
	presents []slotImage
	rebuilds int
}

func newFakeBackend(t *testing.T, slots, images int, seq ...uint32) *fakeBackend {
	if len(seq) == 0 {
		for i := 0; i < images; i++ {
			seq = append(seq, uint32(i))
		}
	}
	return &fakeBackend{
		t:           t,
		slots:       slots,
		images:      images,
		seq:         seq,
		acquireErrs: map[int]error{},
		presentErrs: map[int]error{},
		pending:     make([]bool, slots),
		imageOwner:  map[uint32]int{},
		written:     map[uint32]float32{},
	}
}

func (f *fakeBackend) SlotCount() int  { return f.slots }
func (f *fakeBackend) ImageCount() int { return f.images }

func (f *fakeBackend) WaitSlot(slot int) error {
	f.waits = append(f.waits, slot)
	if f.waitErr != nil {
		return f.waitErr
	}
	f.pending[slot] = false
	return nil
}

func (f *fakeBackend) ResetSlot(slot int) error {
	if f.pending[slot] {
		f.t.Errorf("fence of slot %d reset while its work is in flight", slot)
	}
	f.resets = append(f.resets, slot)
	return nil
}

func (f *fakeBackend) Acquire(slot int) (uint32, error) {
	call := f.acquireCalls
	f.acquireCalls++
	if err, ok := f.acquireErrs[call]; ok {
		return 0, err
	}
	image := f.seq[f.seqPos%len(f.seq)]
	f.seqPos++
	return image, nil
}

func (f *fakeBackend) WriteFrameData(image uint32, m *[16]float32) {
	f.written[image] = m[0]
}

func (f *fakeBackend) Record(image uint32) error {
	if owner, ok := f.imageOwner[image]; ok && f.pending[owner] {
		f.t.Errorf("image %d re-recorded while slot %d still renders it", image, owner)
	}
	f.records = append(f.records, image)
	return nil
}

func (f *fakeBackend) Submit(slot int, image uint32) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	if f.pending[slot] {
		f.t.Errorf("slot %d submitted twice without a wait", slot)
	}
	f.pending[slot] = true
	f.imageOwner[image] = slot
	f.submits = append(f.submits, slotImage{slot, image})
	return nil
}

func (f *fakeBackend) Present(slot int, image uint32) error {
	call := f.presentCalls
	f.presentCalls++
	f.presents = append(f.presents, slotImage{slot, image})
	return f.presentErrs[call]
}

func (f *fakeBackend) Rebuild() error {
	f.rebuilds++
	if len(f.rebuildErrs) > 0 {
		err := f.rebuildErrs[0]
		f.rebuildErrs = f.rebuildErrs[1:]
		if err != nil {
			return err
		}
	}
	if f.slotsAfterRebuild > 0 {
		f.slots = f.slotsAfterRebuild
	}
	if f.imagesAfterRebuild > 0 {
		f.images = f.imagesAfterRebuild
		f.seq = f.seq[:0]
		for i := 0; i < f.images; i++ {
			f.seq = append(f.seq, uint32(i))
		}
		f.seqPos = 0
	}
	// Rebuild idles the device.
	f.pending = make([]bool, f.slots)
	f.imageOwner = map[uint32]int{}
	return nil
}

func newTestScheduler(backend frameBackend, frameData FrameDataWriter) (*FrameScheduler, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return newFrameScheduler(backend, frameData, log, nil), &buf
}

func drawFrames(t *testing.T, s *FrameScheduler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.DrawFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestDrawFrameRotatesSlots(t *testing.T) {
	tests := []struct {
		slots, images, frames int
	}{
		{slots: 2, images: 2, frames: 5},
		{slots: 3, images: 3, frames: 7},
		{slots: 2, images: 3, frames: 8},
		{slots: 1, images: 3, frames: 4},
	}
	for _, tt := range tests {
		backend := newFakeBackend(t, tt.slots, tt.images)
		s, _ := newTestScheduler(backend, nil)
		drawFrames(t, s, tt.frames)

		if got, want := s.CurrentFrame(), tt.frames%tt.slots; got != want {
			t.Errorf("%d slots after %d frames: current frame %d, want %d", tt.slots, tt.frames, got, want)
		}
		for i, sub := range backend.submits {
			if sub.slot != i%tt.slots {
				t.Errorf("%d slots: submit %d used slot %d, want %d", tt.slots, i, sub.slot, i%tt.slots)
			}
		}
		if got := s.Stats().Frames; got != uint64(tt.frames) {
			t.Errorf("frames = %d, want %d", got, tt.frames)
		}
	}
}

func TestDrawFrameKeepsSlotAndImageApart(t *testing.T) {
	backend := newFakeBackend(t, 2, 3, 0, 2, 1, 0)
	s, _ := newTestScheduler(backend, nil)
	drawFrames(t, s, 4)

	wantSubmits := []slotImage{{0, 0}, {1, 2}, {0, 1}, {1, 0}}
	if len(backend.submits) != len(wantSubmits) {
		t.Fatalf("submits = %v, want %v", backend.submits, wantSubmits)
	}
	for i := range wantSubmits {
		if backend.submits[i] != wantSubmits[i] {
			t.Errorf("submit %d = %+v, want %+v", i, backend.submits[i], wantSubmits[i])
		}
		if backend.presents[i] != wantSubmits[i] {
			t.Errorf("present %d = %+v, want %+v", i, backend.presents[i], wantSubmits[i])
		}
	}
	wantRecords := []uint32{0, 2, 1, 0}
	for i, image := range wantRecords {
		if backend.records[i] != image {
			t.Errorf("record %d used image %d, want %d", i, backend.records[i], image)
		}
	}
	// Frame 4 lands on slot 1 but image 0 still belongs to slot 0.
	wantWaits := []int{0, 1, 0, 1, 0}
	if len(backend.waits) != len(wantWaits) {
		t.Fatalf("waits = %v, want %v", backend.waits, wantWaits)
	}
	for i := range wantWaits {
		if backend.waits[i] != wantWaits[i] {
			t.Errorf("wait %d on slot %d, want %d", i, backend.waits[i], wantWaits[i])
		}
	}
}

func TestDrawFrameResetsFenceOnlyBeforeSubmit(t *testing.T) {
	backend := newFakeBackend(t, 2, 2)
	backend.acquireErrs[1] = errSurfaceStale
	s, _ := newTestScheduler(backend, nil)
	drawFrames(t, s, 3)

	if len(backend.resets) != len(backend.submits) {
		t.Errorf("%d fence resets for %d submits", len(backend.resets), len(backend.submits))
	}
}

func TestStaleAcquireRebuildsWithoutAdvancing(t *testing.T) {
	backend := newFakeBackend(t, 2, 3)
	backend.acquireErrs[1] = errSurfaceStale
	s, _ := newTestScheduler(backend, nil)

	drawFrames(t, s, 1)
	if err := s.DrawFrame(); err != nil {
		t.Fatalf("stale acquire: %v", err)
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("current frame = %d after stale acquire, want 1", s.CurrentFrame())
	}
	if backend.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", backend.rebuilds)
	}
	if len(backend.submits) != 1 {
		t.Errorf("stale frame submitted work: %v", backend.submits)
	}

	drawFrames(t, s, 1)
	if last := backend.submits[len(backend.submits)-1]; last.slot != 1 {
		t.Errorf("frame after rebuild used slot %d, want 1", last.slot)
	}
	stats := s.Stats()
	if stats.StaleAcquires != 1 || stats.Rebuilds != 1 || stats.Frames != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStalePresentRebuildsAndAdvances(t *testing.T) {
	backend := newFakeBackend(t, 2, 2)
	backend.presentErrs[0] = errSurfaceStale
	s, _ := newTestScheduler(backend, nil)
	drawFrames(t, s, 1)

	if backend.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", backend.rebuilds)
	}
	if s.CurrentFrame() != 1 {
		t.Errorf("current frame = %d, want 1", s.CurrentFrame())
	}
	if s.Stats().Frames != 1 {
		t.Errorf("stale present not counted as a frame")
	}
}

func TestRequestRebuildAppliesAfterPresent(t *testing.T) {
	backend := newFakeBackend(t, 2, 2)
	s, _ := newTestScheduler(backend, nil)
	s.RequestRebuild()
	drawFrames(t, s, 2)

	if backend.rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", backend.rebuilds)
	}
	if len(backend.presents) != 2 {
		t.Errorf("presents = %d, want 2", len(backend.presents))
	}
}

func TestRebuildFailureIsRetried(t *testing.T) {
	backend := newFakeBackend(t, 2, 2)
	backend.acquireErrs[0] = errSurfaceStale
	backend.rebuildErrs = []error{errors.New("surface lost its size"), errors.New("still no size"), nil}
	s, logs := newTestScheduler(backend, nil)

	// Stale acquire, failed rebuild.
	drawFrames(t, s, 1)
	// Failed retry skips the frame.
	drawFrames(t, s, 1)
	if len(backend.waits) != 1 {
		t.Errorf("skipped frame waited on a slot: %v", backend.waits)
	}
	// Successful retry, then a normal frame.
	drawFrames(t, s, 1)

	stats := s.Stats()
	if stats.RebuildFailures != 2 {
		t.Errorf("rebuild failures = %d, want 2", stats.RebuildFailures)
	}
	if stats.Rebuilds != 1 {
		t.Errorf("rebuilds = %d, want 1", stats.Rebuilds)
	}
	if len(backend.submits) != 1 {
		t.Errorf("submits = %d, want 1", len(backend.submits))
	}
	if !strings.Contains(logs.String(), "presentation chain rebuild failed") {
		t.Errorf("rebuild failure not logged:\n%s", logs.String())
	}
}

func TestDeviceErrorsAreFatal(t *testing.T) {
	boom := errors.New("driver said no")
	tests := []struct {
		name  string
		setup func(f *fakeBackend)
	}{
		{"acquire", func(f *fakeBackend) { f.acquireErrs[0] = boom }},
		{"wait", func(f *fakeBackend) { f.waitErr = boom }},
		{"submit", func(f *fakeBackend) { f.submitErr = boom }},
		{"present", func(f *fakeBackend) { f.presentErrs[0] = boom }},
		{"rebuild", func(f *fakeBackend) {
			f.acquireErrs[0] = errSurfaceStale
			f.rebuildErrs = []error{deviceLost(-4, "wait for device idle")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, 2, 2)
			tt.setup(backend)
			s, _ := newTestScheduler(backend, nil)
			err := s.DrawFrame()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrFatalDevice) {
				t.Errorf("error %v is not marked fatal", err)
			}
			if !errors.Is(err, ErrDeviceLost) {
				t.Errorf("error %v is not device lost", err)
			}
		})
	}
}

func TestRebuildClampsCurrentFrame(t *testing.T) {
	backend := newFakeBackend(t, 3, 3)
	backend.acquireErrs[2] = errSurfaceStale
	backend.slotsAfterRebuild = 2
	backend.imagesAfterRebuild = 2
	s, _ := newTestScheduler(backend, nil)

	drawFrames(t, s, 3)
	if s.CurrentFrame() != 0 {
		t.Errorf("current frame = %d after shrinking to 2 slots, want 0", s.CurrentFrame())
	}
	if len(s.imagesInFlight) != 2 {
		t.Errorf("tracking %d images, want 2", len(s.imagesInFlight))
	}
	drawFrames(t, s, 3)
}

func TestFrameDataHookSeesAcquiredImage(t *testing.T) {
	backend := newFakeBackend(t, 2, 3, 2, 0, 1)
	var seen []uint32
	hook := FrameDataFunc(func(image uint32, m *[16]float32) {
		seen = append(seen, image)
		m[0] = float32(image) + 10
	})
	s, _ := newTestScheduler(backend, hook)
	drawFrames(t, s, 3)

	want := []uint32{2, 0, 1}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("hook call %d saw image %d, want %d", i, seen[i], want[i])
		}
		if got := backend.written[want[i]]; got != float32(want[i])+10 {
			t.Errorf("image %d uniform = %v", want[i], got)
		}
	}
}

func TestSchedulerMetrics(t *testing.T) {
	backend := newFakeBackend(t, 2, 2)
	backend.acquireErrs[1] = errSurfaceStale
	backend.rebuildErrs = []error{errors.New("no surface")}
	metrics := NewMetrics()
	var buf bytes.Buffer
	s := newFrameScheduler(backend, nil, slog.New(slog.NewTextHandler(&buf, nil)), metrics)

	drawFrames(t, s, 4)

	if got := gatheredValue(t, metrics, "aurora_frames_presented_total"); got != 3 {
		t.Errorf("frames presented = %v, want 3", got)
	}
	if got := gatheredValue(t, metrics, "aurora_swapchain_stale_acquires_total"); got != 1 {
		t.Errorf("stale acquires = %v, want 1", got)
	}
	if got := gatheredValue(t, metrics, "aurora_swapchain_rebuilds_total"); got != 2 {
		t.Errorf("rebuilds = %v, want 2 (one failed, one ok)", got)
	}
}

// gatheredValue sums every sample of the named counter or histogram count.
func gatheredValue(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				sum += c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				sum += float64(h.GetSampleCount())
			}
		}
	}
	return sum
}
