// Package device derives the identifier license-client activates with.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strings"
)

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// Platform returns the operating system in the form stored with activations.
func Platform() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}
	return runtime.GOOS
}

// ID returns a stable "<platform>-<fingerprint>" identifier for this machine.
// The raw machine id never leaves the host; only a hash prefix is used.
func ID() string {
	return Platform() + "-" + fingerprint(readMachineID(machineIDPaths), hostname())
}

func fingerprint(machineID, host string) string {
	seed := machineID
	if seed == "" {
		seed = host
	}
	if seed == "" {
		return "0000000000000000"
	}
	sum := sha256.Sum256([]byte("license-gateway:" + seed))
	return hex.EncodeToString(sum[:8])
}

func readMachineID(paths []string) string {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); len(id) >= 8 {
			return id
		}
	}
	return ""
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
