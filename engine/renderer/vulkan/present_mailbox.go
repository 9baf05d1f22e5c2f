//go:build !vsync

package vulkan

// Mailbox is preferred when the surface offers it.
const vsyncForced = false
