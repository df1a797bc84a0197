//go:build !windows

package cmd

import (
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDaemonAttrs_NewSession(t *testing.T) {
	c := exec.Command("true")
	setDaemonAttrs(c)
	require.NotNil(t, c.SysProcAttr)
	assert.True(t, c.SysProcAttr.Setsid)
}

func TestShutdownSignals(t *testing.T) {
	sigs := shutdownSignals()
	assert.Contains(t, sigs, syscall.SIGTERM)
	assert.Contains(t, sigs, syscall.SIGINT)
	assert.Contains(t, sigs, syscall.SIGHUP)
}
