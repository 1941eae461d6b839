package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFENs(t *testing.T) {
	_, err := collectFENs(nil, "")
	require.Error(t, err)

	fens, err := collectFENs([]string{startFEN}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{startFEN}, fens)

	path := filepath.Join(t.TempDir(), "game.txt")
	body := "# opening\n" + startFEN + "\n\n  rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1  \n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	fens, err = collectFENs(nil, path)
	require.NoError(t, err)
	require.Len(t, fens, 2)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1", fens[1])

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0o644))
	_, err = collectFENs(nil, empty)
	require.Error(t, err)
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "analyze", "review", "opening", "capabilities", "strength"} {
		assert.True(t, names[want], want)
	}
}
