package toolchain

import "os/exec"

// SupportsPipefail reports whether the shell that will run generated
// commands honors `set -o pipefail`. Some shells (dash on Debian systems)
// do not, and a shell that cannot even be spawned counts as unsupported so
// the caller falls back to the portable command template.
func SupportsPipefail() bool {
	return exec.Command("sh", "-c", "set -o pipefail 2>/dev/null").Run() == nil
}
