//go:build harts4

package hart

// Count is the number of harts the build supports.
const Count = 4
