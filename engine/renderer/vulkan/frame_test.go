package vulkan

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

func drawFrames(t *testing.T, vr *VulkanRenderer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := vr.DrawFrame(nil); err != nil {
			t.Fatalf("frame %d: %+v", i, err)
		}
	}
}

// assertImageSet checks that exactly one generation of per-image objects is alive.
func assertImageSet(t *testing.T, gpu *fakeGPU, images int) {
	t.Helper()
	want := map[string]int{
		"swapchain":     1,
		"view":          images,
		"framebuffer":   images,
		"commandbuffer": images,
		"semaphore":     2 * images,
		"fence":         images,
	}
	for kind, n := range want {
		if got := gpu.count(kind); got != n {
			t.Errorf("%s: %d live, want %d", kind, got, n)
		}
	}
}

func TestFrameIndexCycles(t *testing.T) {
	for _, images := range []uint32{2, 3} {
		gpu := newFakeGPU()
		gpu.caps.MinImageCount = images - 1
		vr, _, ui := openRenderer(t, gpu)

		if vr.ImageCount() != images {
			t.Fatalf("image count = %d, want %d", vr.ImageCount(), images)
		}
		frames := int(2*images + 1)
		for i := 0; i < frames; i++ {
			if got := vr.CurrentFrame(); got != uint32(i)%images {
				t.Fatalf("N=%d: before frame %d current = %d", images, i, got)
			}
			if err := vr.DrawFrame(nil); err != nil {
				t.Fatalf("frame %d: %+v", i, err)
			}
		}
		if got := vr.Metrics().TotalFrames; got != uint64(frames) {
			t.Errorf("TotalFrames = %d, want %d", got, frames)
		}
		if ui.draws != frames {
			t.Errorf("UI recorded %d frames, want %d", ui.draws, frames)
		}
		for i, index := range gpu.presents {
			if index != uint32(i)%images {
				t.Errorf("present %d used image %d", i, index)
			}
		}
		vr.Shutdown()
	}
}

func TestSubmitWaitsAndSignalsSlotSemaphores(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	slot := vr.context.Frames[0]
	drawFrames(t, vr, 1)

	submit := gpu.submits[len(gpu.submits)-1]
	if len(submit.WaitSemaphores) != 1 || submit.WaitSemaphores[0] != slot.ImageAvailable {
		t.Errorf("submit waits on %v, want %d", submit.WaitSemaphores, slot.ImageAvailable)
	}
	if len(submit.SignalSemaphores) != 1 || submit.SignalSemaphores[0] != slot.RenderFinished {
		t.Errorf("submit signals %v, want %d", submit.SignalSemaphores, slot.RenderFinished)
	}
	if len(submit.WaitStages) != 1 || submit.WaitStages[0] != vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) {
		t.Errorf("wait stages = %v", submit.WaitStages)
	}
	if len(submit.CommandBuffers) != 1 || submit.CommandBuffers[0] != slot.Command.Handle {
		t.Errorf("submitted %v, want the slot command buffer", submit.CommandBuffers)
	}
	if slot.Command.State != COMMAND_BUFFER_STATE_SUBMITTED {
		t.Errorf("command buffer state = %d, want submitted", slot.Command.State)
	}
}

func TestAcquireOutOfDateRecreatesWithoutSubmitting(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	drawFrames(t, vr, 1)
	submits := len(gpu.submits)
	gpu.acquireResults = []vk.Result{vk.ErrorOutOfDate}

	if err := vr.DrawFrame(nil); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if len(gpu.submits) != submits {
		t.Errorf("a batch was submitted for a dropped frame")
	}
	if vr.Metrics().Recreations != 1 || vr.CurrentFrame() != 0 {
		t.Errorf("recreations = %d, current = %d", vr.Metrics().Recreations, vr.CurrentFrame())
	}
	assertImageSet(t, gpu, 3)
}

func TestAcquireFailureDoesNotAdvance(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	drawFrames(t, vr, 1)
	gpu.acquireResults = []vk.Result{vk.ErrorSurfaceLost}

	err := vr.DrawFrame(nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if errors.Is(err, core.ErrFrameSkipped) {
		t.Errorf("acquire failure must not be reported as a skipped frame")
	}
	if vr.CurrentFrame() != 1 {
		t.Errorf("current = %d, want 1", vr.CurrentFrame())
	}
}

func TestSuboptimalAcquireStillPresents(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	gpu.acquireResults = []vk.Result{vk.Suboptimal}
	drawFrames(t, vr, 1)
	if len(gpu.presents) != 1 || vr.Metrics().Recreations != 0 {
		t.Errorf("presents = %d, recreations = %d", len(gpu.presents), vr.Metrics().Recreations)
	}
}

func TestPresentResultsTriggerRecreation(t *testing.T) {
	for _, res := range []vk.Result{vk.ErrorOutOfDate, vk.Suboptimal} {
		t.Run(VulkanResultString(res, false), func(t *testing.T) {
			gpu := newFakeGPU()
			vr, _, _ := openRenderer(t, gpu)
			defer vr.Shutdown()

			drawFrames(t, vr, 1)
			gpu.presentResults = []vk.Result{res}
			if err := vr.DrawFrame(nil); err != nil {
				t.Fatalf("DrawFrame: %v", err)
			}
			if vr.Metrics().Recreations != 1 || vr.CurrentFrame() != 0 {
				t.Errorf("recreations = %d, current = %d", vr.Metrics().Recreations, vr.CurrentFrame())
			}
			drawFrames(t, vr, 4)
		})
	}
}

func TestResizeFlagRecreatesAfterPresent(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	drawFrames(t, vr, 2)
	vr.SetFramebufferResized()
	presents := len(gpu.presents)

	drawFrames(t, vr, 1)
	if len(gpu.presents) != presents+1 {
		t.Errorf("the frame was not presented before recreation")
	}
	if vr.context.FramebufferResized {
		t.Errorf("resize flag not cleared")
	}
	if vr.Metrics().Recreations != 1 || vr.CurrentFrame() != 0 {
		t.Errorf("recreations = %d, current = %d", vr.Metrics().Recreations, vr.CurrentFrame())
	}
}

func TestRepeatedRecreationKeepsOneGeneration(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)

	for i := 0; i < 2; i++ {
		vr.SetFramebufferResized()
		drawFrames(t, vr, 1)
	}
	if vr.Metrics().Recreations != 2 {
		t.Fatalf("recreations = %d, want 2", vr.Metrics().Recreations)
	}
	assertImageSet(t, gpu, 3)
	if gpu.count("renderpass") != 1 || gpu.count("descriptorpool") != 1 {
		t.Errorf("render pass or descriptor pool was recreated")
	}

	vr.Shutdown()
	if n := gpu.totalLive(); n != 0 {
		t.Errorf("%d objects alive after shutdown", n)
	}
}

func TestImageCountChangeRebuildsSlots(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	drawFrames(t, vr, 2)
	gpu.caps.MinImageCount = 3
	vr.SetFramebufferResized()
	drawFrames(t, vr, 1)

	if vr.ImageCount() != 4 || len(vr.context.Frames) != 4 {
		t.Fatalf("images = %d, slots = %d, want 4/4", vr.ImageCount(), len(vr.context.Frames))
	}
	assertImageSet(t, gpu, 4)
	drawFrames(t, vr, 9)
}

func TestRecreationWaitsForDrawableSize(t *testing.T) {
	gpu := newFakeGPU()
	gpu.caps.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	vr, window, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	// Minimized, then restored at a new size.
	window.width, window.height = 0, 0
	window.queued = [][2]int{{0, 600}, {800, 600}}
	vr.SetFramebufferResized()
	drawFrames(t, vr, 1)

	if window.waits != 2 {
		t.Errorf("waited %d times, want 2", window.waits)
	}
	extent := vr.context.Swapchain.Extent
	if extent.Width != 800 || extent.Height != 600 {
		t.Errorf("extent = %dx%d, want 800x600", extent.Width, extent.Height)
	}
	renderpass := vr.context.MainRenderpass
	if renderpass.W != 800 || renderpass.H != 600 {
		t.Errorf("render area = %vx%v, want 800x600", renderpass.W, renderpass.H)
	}
}

func TestRecreationIsNotReentrant(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	vr.context.RecreatingSwapchain = true
	if err := vr.DrawFrame(nil); err != nil {
		t.Errorf("DrawFrame while recreating: %v", err)
	}
	if gpu.calls["AcquireNextImage"] != 0 {
		t.Errorf("DrawFrame acquired an image while recreating")
	}
	if err := vr.recreateSwapchain(); !errors.Is(err, core.ErrSwapchainBooting) {
		t.Errorf("recreateSwapchain = %v, want ErrSwapchainBooting", err)
	}
	vr.context.RecreatingSwapchain = false
}

func TestSubmitFailureSkipsFrame(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	oldFence := vr.context.Frames[0].InFlight.Handle
	oldSemaphore := vr.context.Frames[0].ImageAvailable
	gpu.failOnce["QueueSubmit"] = vk.ErrorDeviceLost

	err := vr.DrawFrame(nil)
	if !errors.Is(err, core.ErrFrameSkipped) {
		t.Fatalf("err = %v, want ErrFrameSkipped", err)
	}
	if len(gpu.presents) != 0 {
		t.Errorf("the image was presented after a failed submit")
	}
	if vr.CurrentFrame() != 1 || vr.Metrics().Skipped != 1 {
		t.Errorf("current = %d, skipped = %d", vr.CurrentFrame(), vr.Metrics().Skipped)
	}
	slot := vr.context.Frames[0]
	if slot.InFlight.Handle == oldFence || !slot.InFlight.IsSignaled {
		t.Errorf("fence not replaced with a signaled one")
	}
	if slot.ImageAvailable == oldSemaphore {
		t.Errorf("image-available semaphore not replaced")
	}
	assertImageSet(t, gpu, 3)

	// Every slot, including the recovered one, keeps working.
	drawFrames(t, vr, 6)
	if vr.Metrics().TotalFrames != 6 {
		t.Errorf("TotalFrames = %d, want 6", vr.Metrics().TotalFrames)
	}
}

func TestFenceResetFailureSkipsFrame(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	oldSemaphore := vr.context.Frames[0].ImageAvailable
	gpu.failOnce["ResetFences"] = vk.ErrorOutOfDeviceMemory

	err := vr.DrawFrame(nil)
	if !errors.Is(err, core.ErrFrameSkipped) {
		t.Fatalf("err = %v, want ErrFrameSkipped", err)
	}
	if len(gpu.submits) != 0 || len(gpu.presents) != 0 {
		t.Errorf("submits = %d, presents = %d, want none", len(gpu.submits), len(gpu.presents))
	}
	if vr.CurrentFrame() != 1 || vr.Metrics().Skipped != 1 {
		t.Errorf("current = %d, skipped = %d", vr.CurrentFrame(), vr.Metrics().Skipped)
	}
	slot := vr.context.Frames[0]
	if slot.ImageAvailable == oldSemaphore {
		t.Errorf("image-available semaphore not replaced")
	}
	if !slot.InFlight.IsSignaled {
		t.Errorf("replacement fence is not signaled")
	}
	assertImageSet(t, gpu, 3)
	drawFrames(t, vr, 6)
}

func TestFailedRecreationStopsDrawing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(gpu *fakeGPU)
	}{
		{"swapchain", func(gpu *fakeGPU) { gpu.failOnce["CreateSwapchain"] = vk.ErrorOutOfDeviceMemory }},
		{"framebuffer", func(gpu *fakeGPU) { gpu.failOnce["CreateFramebuffer"] = vk.ErrorOutOfDeviceMemory }},
		{"frame slots", func(gpu *fakeGPU) {
			gpu.caps.MinImageCount = 3
			gpu.failOnce["CreateSemaphore"] = vk.ErrorOutOfHostMemory
		}},
		{"command buffers", func(gpu *fakeGPU) { gpu.failOnce["AllocateCommandBuffers"] = vk.ErrorOutOfDeviceMemory }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gpu := newFakeGPU()
			vr, _, _ := openRenderer(t, gpu)
			drawFrames(t, vr, 1)
			tt.setup(gpu)
			vr.SetFramebufferResized()

			if err := vr.DrawFrame(nil); !errors.Is(err, core.ErrSetup) {
				t.Fatalf("err = %v, want ErrSetup", err)
			}
			presents := len(gpu.presents)
			for i := 0; i < 2; i++ {
				if err := vr.DrawFrame(nil); !errors.Is(err, core.ErrSetup) {
					t.Errorf("draw %d after the failed rebuild: err = %v, want ErrSetup", i, err)
				}
			}
			if len(gpu.presents) != presents {
				t.Errorf("presented after the failed rebuild")
			}
			if vr.Metrics().Recreations != 0 || vr.context.RecreatingSwapchain {
				t.Errorf("recreations = %d, recreating = %v", vr.Metrics().Recreations, vr.context.RecreatingSwapchain)
			}

			if err := vr.Shutdown(); err != nil {
				t.Fatalf("Shutdown: %v", err)
			}
			if n := gpu.totalLive(); n != 0 {
				t.Errorf("%d objects alive after shutdown: %v", n, gpu.live)
			}
		})
	}
}

func TestRecordFailureSubmitsEmptyBatch(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, ui := openRenderer(t, gpu)
	defer vr.Shutdown()

	gpu.failOnce["BeginCommandBuffer"] = vk.ErrorOutOfHostMemory
	err := vr.DrawFrame(nil)
	if !errors.Is(err, core.ErrFrameSkipped) {
		t.Fatalf("err = %v, want ErrFrameSkipped", err)
	}
	if ui.draws != 0 {
		t.Errorf("UI recorded into a command buffer that failed to begin")
	}
	last := gpu.submits[len(gpu.submits)-1]
	if len(last.CommandBuffers) != 0 {
		t.Errorf("submitted %d command buffers, want an empty batch", len(last.CommandBuffers))
	}
	if len(gpu.presents) != 1 {
		t.Errorf("presents = %d, want 1", len(gpu.presents))
	}
	if vr.CurrentFrame() != 1 || vr.Metrics().Skipped != 1 || vr.Metrics().TotalFrames != 0 {
		t.Errorf("current = %d, skipped = %d, total = %d",
			vr.CurrentFrame(), vr.Metrics().Skipped, vr.Metrics().TotalFrames)
	}
	drawFrames(t, vr, 3)
}

func TestFenceWaitFailure(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	// After one full cycle every fence has to be waited on.
	drawFrames(t, vr, 3)
	gpu.fail["WaitForFences"] = vk.ErrorDeviceLost

	if err := vr.DrawFrame(nil); err == nil {
		t.Fatalf("expected an error")
	}
	if vr.CurrentFrame() != 0 {
		t.Errorf("current = %d, want 0", vr.CurrentFrame())
	}
	delete(gpu.fail, "WaitForFences")
}

func TestPresentErrorAdvances(t *testing.T) {
	gpu := newFakeGPU()
	vr, _, _ := openRenderer(t, gpu)
	defer vr.Shutdown()

	gpu.presentResults = []vk.Result{vk.ErrorSurfaceLost}
	if err := vr.DrawFrame(nil); err == nil {
		t.Fatalf("expected an error")
	}
	if vr.CurrentFrame() != 1 {
		t.Errorf("current = %d, want 1", vr.CurrentFrame())
	}
	drawFrames(t, vr, 3)
}
