//go:build novalidation

package vulkan

const validationCompiled = false
