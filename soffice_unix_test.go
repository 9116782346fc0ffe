//go:build unix

package docconv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholasgasior/docconv-go/internal/scratch"
)

// A wrapper script that leaves a long-running child behind, the way the
// LibreOffice launcher leaves soffice.bin.
const hangingSoffice = `#!/bin/sh
sleep 60 &
echo $! > "$SOFFICE_CHILD_PID"
wait
`

func TestSofficeTimeoutKillsChildren(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "soffice")
	require.NoError(t, os.WriteFile(bin, []byte(hangingSoffice), 0o755))
	pidFile := filepath.Join(dir, "child.pid")
	t.Setenv("SOFFICE_CHILD_PID", pidFile)

	m, err := scratch.New(filepath.Join(dir, "scratch"))
	require.NoError(t, err)
	session, err := m.Session()
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	s := &Soffice{Binary: bin, Logger: zerolog.Nop()}
	_, err = s.Convert(ctx, &Input{Data: []byte("{\\rtf1 x}"), Source: FormatDoc, Target: FormatPDF, Scratch: session})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), sofficeWaitDelay+time.Second)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return !processAlive(pid)
	}, 5*time.Second, 50*time.Millisecond, "child %d survived the timeout", pid)
}

// processAlive treats zombies as dead: an orphan may wait a while for init to
// reap it.
func processAlive(pid int) bool {
	if syscall.Kill(pid, 0) != nil {
		return false
	}
	stat, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	// The state follows the parenthesized command name.
	i := bytes.LastIndexByte(stat, ')')
	return i < 0 || i+2 >= len(stat) || stat[i+2] != 'Z'
}
