package app_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	// #nosec G304 -- tests read from their own temp directories.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
