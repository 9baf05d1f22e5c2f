package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// Setup failures. Open never returns a partial session when one of these is hit.
	ErrSetup            = errors.New("renderer setup failed")
	ErrLayerMissing     = errors.New("required validation layer is missing")
	ErrNoSuitableDevice = errors.New("no suitable physical device")

	// Upload failures, local to the call that hit them.
	ErrNoMemoryType          = errors.New("no suitable memory type")
	ErrUnsupportedTransition = errors.New("unsupported image layout transition")
	ErrResourceCreation      = errors.New("gpu resource creation failed")
	ErrImageDecode           = errors.New("image decode failed")

	// Per-frame failures. The frame is dropped and pacing continues.
	ErrFrameSkipped = errors.New("frame skipped")

	// Returned when a swapchain rebuild is requested while one is running.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
)
