//go:build !aurora_verbose

package aurora

const verboseStartup = false
