//go:build windows

package tactile

import "os/exec"

// setupProcessGroup is a no-op on Windows; CommandContext kills the direct
// child only.
func setupProcessGroup(cmd *exec.Cmd) {}
