package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		classifyFrame = false
		classifyFormat = "text"
		simSignedIn = false
		simNavigate = nil
		simMessages = nil
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(execute(t, "version")), &info))
	assert.Equal(t, version, info["version"])
}

func TestClassifyCommand(t *testing.T) {
	out := execute(t, "classify", "https://twitter.com/login", "https://evil.example.com/")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "auth-session")
	assert.Contains(t, lines[1], "fallback")
}

func TestClassifyCommandJSON(t *testing.T) {
	out := execute(t, "classify", "--frame", "--format", "json", "https://ads.example.com/frame")

	var got struct {
		MainFrame bool `json:"main_frame"`
		Decision  struct {
			Action string `json:"action"`
			Rule   string `json:"rule"`
		} `json:"decision"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.MainFrame)
	assert.Equal(t, "fallback", got.Decision.Rule)
	assert.Equal(t, "open-externally", got.Decision.Action)
}

func TestSimulateCommand(t *testing.T) {
	out := execute(t, "simulate", "--signed-in",
		"--navigate", "https://evil.example.com/",
		"--message", "changeUIVersion beta",
	)

	assert.Contains(t, out, `"type":"ready"`)
	assert.Contains(t, out, "open https://evil.example.com/")
	assert.Contains(t, out, `"ui_version": "beta"`)
	assert.Contains(t, out, `"load_state": "ready"`)
}
