package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout returns what fn writes to os.Stdout
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "modgen", root.Name)
	assert.NotEmpty(t, root.Description)
	assert.NotNil(t, root.Flags)

	expectedCommands := []string{"generate", "watch", "modules", "descriptors"}
	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
		assert.NotNil(t, root.Subcommands[cmdName].Run)
		assert.NotNil(t, root.Subcommands[cmdName].Flags)
	}
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	root := NewRootCommand()

	output, err := captureStdout(t, root.usage)
	require.NoError(t, err)

	assert.Contains(t, output, "Usage: modgen <command> [args]")
	assert.Contains(t, output, "Commands:")
	// commands are listed alphabetically
	assert.Less(t, bytes.Index([]byte(output), []byte("descriptors")), bytes.Index([]byte(output), []byte("generate")))
	assert.Less(t, bytes.Index([]byte(output), []byte("modules")), bytes.Index([]byte(output), []byte("watch")))
}

func TestCommandExecute_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}} {
		root := NewRootCommand()
		output, err := captureStdout(t, func() error { return root.ExecuteArgs(args) })
		assert.NoError(t, err)
		assert.Contains(t, output, "Usage: modgen <command> [args]")
	}
}

func TestCommandExecute_OSArgs(t *testing.T) {
	root := NewRootCommand()

	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name: "test",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	oldArgs := os.Args
	os.Args = []string{"modgen", "test", "arg1", "-flag"}
	defer func() { os.Args = oldArgs }()

	require.NoError(t, root.Execute())
	assert.Equal(t, []string{"arg1", "-flag"}, receivedArgs)
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	err := NewRootCommand().ExecuteArgs([]string{"nonexistent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}
