//go:build !windows

package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_IsRunning_OtherUser(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root can signal every process")
	}
	pf := NewPIDFile(filepath.Join(t.TempDir(), "init.pid"))
	require.NoError(t, pf.WritePID(1))

	pid, running := pf.IsRunning()
	assert.Equal(t, 1, pid)
	assert.True(t, running)
}

func TestPIDFile_Stop(t *testing.T) {
	for _, force := range []bool{false, true} {
		child := exec.Command("sleep", "30")
		require.NoError(t, child.Start())

		pf := NewPIDFile(filepath.Join(t.TempDir(), "child.pid"))
		require.NoError(t, pf.WritePID(child.Process.Pid))

		require.NoError(t, pf.Stop(force))
		err := child.Wait()
		assert.Error(t, err, "force=%v", force)
	}
}
