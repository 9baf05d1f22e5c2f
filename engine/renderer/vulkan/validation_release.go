//go:build !debug

package vulkan

const VALIDATION_DEFAULT = false
