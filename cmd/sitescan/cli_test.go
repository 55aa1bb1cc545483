package main_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/alecthomas/kong"
	main "github.com/fwojciec/sitescan/cmd/sitescan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_HelpShowsAllCommands(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	parser, err := kong.New(cli,
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	_, _ = parser.Parse([]string{"--help"})

	for _, cmd := range []string{"crawl", "pages", "registry", "serve"} {
		assert.Contains(t, stdout.String(), cmd, "Help should mention %s command", cmd)
	}
}

func TestCLI_ParsesCrawlFlags(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	parser, err := kong.New(cli, kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"crawl", "https://example.test/", "--overwrite", "-c", "3"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/", cli.Crawl.URL)
	assert.True(t, cli.Crawl.Overwrite)
	assert.Equal(t, 3, cli.Crawl.Concurrency)
}

func TestCLI_RejectsUnknownSortKey(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	parser, err := kong.New(cli, kong.Exit(func(int) {}), kong.Writers(&bytes.Buffer{}, &bytes.Buffer{}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"pages", "example.test", "--sort", "contentHash"})
	require.Error(t, err)
}

func TestMain_Run(t *testing.T) {
	t.Parallel()

	t.Run("help shows kong output", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DataDir = t.TempDir()

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"--help"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "Usage:")
		assert.Contains(t, stdout.String(), "crawl")
	})

	t.Run("requires a command", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DataDir = t.TempDir()

		err := m.Run(context.Background(), nil, &bytes.Buffer{}, &bytes.Buffer{})
		require.ErrorContains(t, err, "no command specified")
	})

	t.Run("opens registry in data directory", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.DataDir = t.TempDir()

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"registry"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "No crawls found")
		assert.FileExists(t, m.DataDir+"/registry.db")
	})
}
