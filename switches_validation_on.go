//go:build aurora_validation

package aurora

const validationEnabled = true
