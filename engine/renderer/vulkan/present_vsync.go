//go:build vsync

package vulkan

// Built with -tags vsync: always present with FIFO.
const vsyncForced = true
