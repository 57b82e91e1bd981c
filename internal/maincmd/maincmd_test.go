package maincmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/internal/maincmd"
)

func scriptFile(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.ch")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCmdRunPrintsFinalValue(t *testing.T) {
	path := scriptFile(t, `1 + 2`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Run(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	require.NoError(t, err)
	require.Equal(t, "3\n", out.String())
}

func TestCmdRunMissingFileFails(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Run(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{filepath.Join(t.TempDir(), "missing.ch")})
	require.Error(t, err)
	require.NotEmpty(t, errOut.String())
}

func TestCmdTokenizePrintsOneLinePerToken(t *testing.T) {
	path := scriptFile(t, `let x = 1`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Tokenize(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	require.NoError(t, err)
	require.Contains(t, out.String(), "let")
	require.Contains(t, out.String(), "identifier")
}

func TestCmdParsePrintsSyntaxTree(t *testing.T) {
	path := scriptFile(t, `let x = 1`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Parse(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	require.NoError(t, err)
	require.NotEmpty(t, out.String())
}

func TestCmdCompilePrintsDisassembly(t *testing.T) {
	path := scriptFile(t, `1 + 2`)
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Compile(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{path})
	require.NoError(t, err)
	require.Contains(t, out.String(), "program")
}

func TestCmdCompletionsDefaultsToBash(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Completions(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, nil)
	require.NoError(t, err)
	require.Contains(t, out.String(), "chenlang")
}

func TestCmdCompletionsUnsupportedShellFails(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &maincmd.Cmd{}
	err := c.Completions(context.Background(), mainer.Stdio{Stdout: &out, Stderr: &errOut}, []string{"powershell"})
	require.Error(t, err)
}
