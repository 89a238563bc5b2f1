package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandString(t *testing.T) {
	t.Setenv("FW_TEST_TOKEN", "abc123")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "", false},
		{"literal", "plain-value", "plain-value", false},
		{"variable", "${FW_TEST_TOKEN}", "abc123", false},
		{"embedded", "pre-${FW_TEST_TOKEN}-post", "pre-abc123-post", false},
		{"fallback unused", "${FW_TEST_TOKEN:-other}", "abc123", false},
		{"fallback used", "${FW_TEST_UNSET:-other}", "other", false},
		{"empty fallback", "${FW_TEST_UNSET:-}", "", false},
		{"missing", "${FW_TEST_UNSET}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "FW_TEST_UNSET")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	secure := filepath.Join(dir, "secure")
	require.NoError(t, os.WriteFile(secure, []byte("s3cret\n"), 0o600))
	got, insecure, err := ReadFile(secure)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.False(t, insecure)

	open := filepath.Join(dir, "open")
	require.NoError(t, os.WriteFile(open, []byte("s3cret"), 0o644))
	_, insecure, err = ReadFile(open)
	require.NoError(t, err)
	assert.True(t, insecure)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, _, err = ReadFile(empty)
	assert.Error(t, err)

	_, _, err = ReadFile(dir)
	assert.Error(t, err, "directories are rejected")

	_, _, err = ReadFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestResolvePrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0o600))

	got, err := Resolve(path, "literal")
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Resolve("", "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)
}
