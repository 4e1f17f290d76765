package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptPlugin(t *testing.T, name, script string, movements ...string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return &Plugin{
		Manifest:   Manifest{Name: name, Executable: name + ".sh", Movements: movements},
		Path:       dir,
		Executable: path,
	}
}

func sampleRequest() *Request {
	return &Request{
		Event:     EventActivated,
		SessionID: "sess-1",
		Movement: Movement{
			AnalyzerID:   "hands_up",
			BodyPart:     "both_arms",
			MovementType: "hands_up",
			Descriptor:   "both hands raised",
			Confidence:   0.9,
		},
		Config: json.RawMessage(`{"key":"space"}`),
	}
}

func TestExecutor_Execute(t *testing.T) {
	p := scriptPlugin(t, "ok", "#!/bin/sh\necho '{\"success\":true,\"data\":{\"message\":\"hello\"}}'\n")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, sampleRequest())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"message":"hello"}`, string(resp.Data))
}

func TestExecutor_ReadsStdin(t *testing.T) {
	p := scriptPlugin(t, "echo", "#!/bin/sh\nINPUT=$(cat)\necho \"{\\\"success\\\":true,\\\"data\\\":$INPUT}\"\n")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, sampleRequest())
	require.NoError(t, err)

	var got Request
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, EventActivated, got.Event)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "both hands raised", got.Movement.Descriptor)
	assert.JSONEq(t, `{"key":"space"}`, string(got.Config))
}

func TestExecutor_Failures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		p := scriptPlugin(t, "slow", "#!/bin/sh\nexec sleep 10\necho '{\"success\":true}'\n")
		_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, sampleRequest())
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		p := scriptPlugin(t, "fail", "#!/bin/sh\necho boom >&2\nexit 3\n")
		_, err := NewExecutor(time.Second).Execute(context.Background(), p, sampleRequest())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("invalid json", func(t *testing.T) {
		p := scriptPlugin(t, "garbled", "#!/bin/sh\necho not-json\n")
		_, err := NewExecutor(time.Second).Execute(context.Background(), p, sampleRequest())
		assert.Error(t, err)
	})

	t.Run("missing executable", func(t *testing.T) {
		p := &Plugin{Manifest: Manifest{Name: "ghost"}, Path: t.TempDir(), Executable: "/nonexistent/ghost"}
		_, err := NewExecutor(time.Second).Execute(context.Background(), p, sampleRequest())
		assert.Error(t, err)
	})
}

func TestDispatcher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "received.json")

	dir := writeManifest(t, root, Manifest{Name: "record", Executable: "record.sh", Movements: []string{"hands_up"}})
	script := "#!/bin/sh\ncat > " + out + "\necho '{\"success\":true}'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "record.sh"), []byte(script), 0o755))

	logger, _ := test.NewNullLogger()
	m := NewManager(root, logger)
	require.NoError(t, m.Discover())
	d := NewDispatcher(m, NewExecutor(5*time.Second), logger)

	assert.Equal(t, 0, d.Dispatch("sess-1", Movement{AnalyzerID: "head_turn", MovementType: "turning"}))
	assert.Equal(t, 1, d.Dispatch("sess-1", sampleRequest().Movement))
	d.Close()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got Request
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "hands_up", got.Movement.AnalyzerID)

	assert.Equal(t, 0, d.Dispatch("sess-1", sampleRequest().Movement), "closed dispatcher accepts nothing")
	d.Close()
}
