package vkdriver

const endChar = '\x00'
const end = "\x00"

// VulkanSafeString returns s terminated by a NUL byte, as the C side expects.
func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

// FindFirstZeroInByteArray returns the index of the first NUL in arr, or 0 if there is none.
func FindFirstZeroInByteArray(arr []byte) int {
	end := 0
	for i, b := range arr {
		if b == 0 {
			end = i
			break
		}
	}
	return end
}
