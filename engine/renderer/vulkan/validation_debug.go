//go:build debug

package vulkan

// Debug builds turn validation on unless the caller says otherwise.
const VALIDATION_DEFAULT = true
