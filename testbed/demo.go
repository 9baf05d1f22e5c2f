package testbed

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vkpresent/engine/assets"
	"github.com/spaghettifunk/vkpresent/engine/config"
	"github.com/spaghettifunk/vkpresent/engine/core"
	"github.com/spaghettifunk/vkpresent/engine/platform"
	"github.com/spaghettifunk/vkpresent/engine/renderer/vulkan"
	"github.com/spaghettifunk/vkpresent/engine/renderer/vulkan/vkdriver"
)

const metricsLogInterval = 5.0

// Demo opens a window, presents the demo UI and reloads textures as their
// files change.
type Demo struct {
	cfg *config.Config

	platform *platform.Platform
	driver   *vkdriver.Driver
	ui       *DemoUI
	renderer *vulkan.VulkanRenderer
	watcher  *assets.TextureWatcher

	clock   *core.Clock
	stopped atomic.Bool
}

func NewDemo(cfg *config.Config) *Demo {
	return &Demo{
		cfg:   cfg,
		ui:    NewDemoUI(),
		clock: core.NewClock(),
	}
}

// Initialize brings up the window, the presenter and the startup textures.
func (d *Demo) Initialize() error {
	cfg := d.cfg
	core.SetLogLevel(core.ParseLevel(cfg.Log.Level))
	core.LogInfo("booting testbed...")

	d.platform = platform.New()
	if err := d.platform.Startup(cfg.App.Name, cfg.App.PosX, cfg.App.PosY, cfg.App.Width, cfg.App.Height); err != nil {
		return err
	}

	driver, err := vkdriver.New(platform.InstanceProcAddress())
	if err != nil {
		return err
	}
	d.driver = driver

	d.renderer, err = vulkan.Open(d.platform, d.driver, d.ui, vulkan.Options{
		ApplicationName:    cfg.App.Name,
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		ClearColor:         cfg.Renderer.ClearColor,
		Validation:         cfg.ValidationEnabled(vulkan.VALIDATION_DEFAULT),
	})
	if err != nil {
		return err
	}
	d.platform.OnResize(func(width, height int) {
		d.renderer.SetFramebufferResized()
	})

	var info vulkan.InitInfo
	d.renderer.FillInitInfo(&info)
	core.LogDebug("UI backend bound to queue family %d, %d swapchain images.", info.QueueFamily, info.ImageCount)

	if err := d.renderer.InitializeFontTexture(); err != nil {
		return err
	}

	if cfg.Assets.Watch {
		if d.watcher, err = assets.NewTextureWatcher(); err != nil {
			return err
		}
	}
	for _, path := range cfg.Assets.Textures {
		handle, err := d.renderer.LoadImage(path)
		if err != nil {
			// A missing texture is not fatal for the demo.
			continue
		}
		if d.watcher != nil {
			if err := d.watcher.Track(handle.Path); err != nil {
				core.LogWarn("Not watching '%s': %s", handle.Path, err)
			}
		}
	}
	return nil
}

// Stop asks the frame loop to exit. Safe from any goroutine.
func (d *Demo) Stop() {
	d.stopped.Store(true)
}

func (d *Demo) Run() error {
	d.clock.Start()
	metrics := d.renderer.Metrics()
	var sinceLog float64

	for !d.stopped.Load() && !d.platform.ShouldClose() {
		d.platform.PumpMessages()
		d.reloadChanged()

		delta := d.clock.Tick()
		d.clock.Update()
		metrics.Update(delta)

		err := d.renderer.DrawFrame(d.ui.NewFrame(delta))
		switch {
		case err == nil:
		case errors.Is(err, core.ErrFrameSkipped):
			core.LogWarn("Frame skipped: %s", err)
		default:
			return errors.Wrap(err, "draw frame")
		}

		sinceLog += delta
		if sinceLog >= metricsLogInterval {
			sinceLog = 0
			core.LogInfo("%.1f fps, %.2f ms/frame, %d presented, %d skipped, %d swapchain recreations",
				metrics.FPS(), metrics.FrameTime(), metrics.TotalFrames, metrics.Skipped, metrics.Recreations)
		}
	}
	d.clock.Stop()
	core.LogInfo("Ran for %.1fs.", d.clock.Elapsed())
	return nil
}

func (d *Demo) reloadChanged() {
	if d.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-d.watcher.Changes():
			if !ok {
				d.watcher = nil
				return
			}
			handle, found := d.renderer.Textures().ByPath(path)
			if !found {
				continue
			}
			if err := d.renderer.ReloadTexture(handle); err != nil {
				core.LogWarn("Keeping previous texture for '%s': %s", path, err)
			}
		default:
			return
		}
	}
}

// Shutdown releases everything Initialize created, in reverse order.
func (d *Demo) Shutdown() error {
	var errs error
	if d.watcher != nil {
		errs = errors.CombineErrors(errs, d.watcher.Close())
	}
	if d.renderer != nil {
		errs = errors.CombineErrors(errs, d.renderer.Shutdown())
	}
	if d.driver != nil {
		d.driver.Close()
	}
	if d.platform != nil {
		errs = errors.CombineErrors(errs, d.platform.Shutdown())
	}
	return errs
}
