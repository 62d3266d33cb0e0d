//go:build !novalidation

package vulkan

// validationCompiled gates the validation layer at build time. Build with
// -tags novalidation to leave it out whatever the configuration says.
const validationCompiled = true
