// Package testutil holds helpers for tests that need real backends.
package testutil

import (
	"os"
	"testing"
)

// IntegrationEnv enables integration tests when set to a non-empty value.
const IntegrationEnv = "INTEGRATION_TESTS"

// RequireIntegration skips the test in short mode, and in CI unless
// IntegrationEnv is set.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv(IntegrationEnv) == "" && os.Getenv("CI") != "" {
		t.Skipf("skipping integration test (set %s=1 to run)", IntegrationEnv)
	}
}
