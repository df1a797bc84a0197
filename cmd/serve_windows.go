//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// detachedProcess is DETACHED_PROCESS from the Win32 process creation flags.
const detachedProcess = 0x00000008

// setDaemonAttrs starts the background server without a console and outside
// the launching console's Ctrl+C group.
func setDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | detachedProcess,
		HideWindow:    true,
	}
}

// shutdownSignals are the signals that stop serve and mcp gracefully.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
