package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/emblog/log"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func TestSend(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args        []string
		want        string
		expectError bool
	}{
		"formats arguments": {
			args: []string{"send", "--log-color=never", "--level=warn", "--module=sys", "low %s at %s%%", "battery", "9"},
			want: "[WARN][sys] low battery at 9%\n",
		},
		"default level and module": {
			args: []string{"send", "--log-color=never", "ready"},
			want: "[INFO][emblog] ready\n",
		},
		"filtered by threshold": {
			args: []string{"send", "--log-color=never", "--log-level=error", "--level=info", "hidden"},
			want: "",
		},
		"crlf and color": {
			args: []string{"send", "--log-color=always", "--log-line-ending=crlf", "-l", "error", "-m", "disk", "full"},
			want: "\x1b[0;31m[ERROR][disk] full\x1b[0m\r\n",
		},
		"unknown message level": {
			args:        []string{"send", "--level=loud", "x"},
			expectError: true,
		},
		"unknown threshold": {
			args:        []string{"send", "--log-level=loud", "x"},
			expectError: true,
		},
		"missing format": {
			args:        []string{"send"},
			expectError: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := execute(t, tc.args...)
			if tc.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSendMirrorsToSyslog(t *testing.T) {
	t.Parallel()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, conn.Close()) })

	port := strconv.Itoa(conn.LocalAddr().(*net.UDPAddr).Port)

	got, err := execute(t, "send",
		"--log-color=never", "--log-level=error",
		"--syslog-host=127.0.0.1", "--syslog-port="+port, "--syslog-origin=device1",
		"--level=warn", "--module=sys", "low battery",
	)
	require.NoError(t, err)
	assert.Empty(t, got, "warn is below the local error threshold")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	buf := make([]byte, 2048)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "<4>1 - device1 sys - - - \xEF\xBB\xBFlow battery", string(buf[:n]))
}

func TestSendWithConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: error\ncolor: never\n"), 0o600))

	got, err := execute(t, "send", "--log-config="+path, "--level=info", "hidden")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = execute(t, "send", "--log-config="+path, "--log-level=debug", "--level=info", "shown")
	require.NoError(t, err)
	assert.Equal(t, "[INFO][emblog] shown\n", got)

	_, err = execute(t, "send", "--log-config="+filepath.Join(t.TempDir(), "missing.yaml"), "x")
	require.ErrorIs(t, err, log.ErrReadConfig)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	got, err := execute(t, "schema")
	require.NoError(t, err)

	var doc map[string]any

	require.NoError(t, json.Unmarshal([]byte(got), &doc))
	assert.Contains(t, doc["properties"], "syslog")
}

func TestVersion(t *testing.T) {
	t.Parallel()

	got, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "emblog "), got)
}

func TestListenRequiresValidAddress(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "listen", "--addr=not an address")
	require.Error(t, err)
}

func TestViewerUpdate(t *testing.T) {
	t.Parallel()

	pub := log.NewPublisher()
	t.Cleanup(func() { require.NoError(t, pub.Close()) })

	m := newViewer(pub.Subscribe(), ":514")

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 3})
	assert.Nil(t, cmd)
	assert.Equal(t, 3, m.height)

	for _, rec := range []string{"[INFO][a] one\n", "[INFO][a] two\r\n", "[INFO][a] three\n"} {
		_, cmd = m.Update(recordMsg(rec))
		assert.NotNil(t, cmd, "viewer keeps waiting for records")
	}

	assert.Equal(t, []string{"[INFO][a] one", "[INFO][a] two", "[INFO][a] three"}, m.lines)

	_, cmd = m.Update(closedMsg{})
	assert.Nil(t, cmd)
}

func TestViewerScrollbackLimit(t *testing.T) {
	t.Parallel()

	m := newViewer(nil, ":514")

	for i := range maxViewerLines + 10 {
		m.Update(recordMsg(strconv.Itoa(i)))
	}

	require.Len(t, m.lines, maxViewerLines)
	assert.Equal(t, "10", m.lines[0])
}

func TestRunAlongside(t *testing.T) {
	t.Parallel()

	errBind := errors.New("address already in use")

	tcs := map[string]struct {
		serve   func(context.Context) error
		view    func(context.Context) error
		wantErr error
	}{
		"serve failure stops the view": {
			serve: func(context.Context) error { return errBind },
			view: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			wantErr: errBind,
		},
		"view exit stops serve": {
			serve: func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			},
			view: func(context.Context) error { return nil },
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			done := make(chan error, 1)

			go func() {
				done <- runAlongside(t.Context(), tc.serve, tc.view)
			}()

			select {
			case err := <-done:
				if tc.wantErr != nil {
					require.ErrorIs(t, err, tc.wantErr)
					return
				}

				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				require.FailNow(t, "runAlongside did not return")
			}
		})
	}
}
