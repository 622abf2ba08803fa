package device

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := fingerprint("0123456789abcdef", "host-a")
	assert.Len(t, a, 16)
	assert.Equal(t, a, fingerprint("0123456789abcdef", "host-b"), "machine id wins over hostname")
	assert.NotEqual(t, a, fingerprint("", "host-a"))
	assert.Equal(t, fingerprint("", "host-a"), fingerprint("", "host-a"))
	assert.Equal(t, "0000000000000000", fingerprint("", ""))
}

func TestReadMachineID(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short")
	valid := filepath.Join(dir, "valid")
	assert.NoError(t, os.WriteFile(short, []byte("abc\n"), 0o600))
	assert.NoError(t, os.WriteFile(valid, []byte("  4c4c4544004d\n"), 0o600))

	assert.Equal(t, "4c4c4544004d", readMachineID([]string{filepath.Join(dir, "missing"), short, valid}))
	assert.Empty(t, readMachineID([]string{short}))
}

func TestID(t *testing.T) {
	id := ID()
	assert.True(t, strings.HasPrefix(id, Platform()+"-"))
	assert.Equal(t, id, ID())
}
