package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"price-recommender/config"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd(&app{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"collect", "normalize", "cleanse", "recommend", "pipeline", "serve"} {
		assert.Contains(t, names, want)
	}

	collect, _, err := root.Find([]string{"collect"})
	require.NoError(t, err)
	assert.NotNil(t, collect.Flags().Lookup("pages"))
	assert.NotNil(t, collect.Flags().Lookup("batch-size"))

	pipeline, _, err := root.Find([]string{"pipeline"})
	require.NoError(t, err)
	assert.NotNil(t, pipeline.Flags().Lookup("skip-collect"))

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, ":8000", serve.Flags().Lookup("addr").DefValue)
}

func TestApplyCollectFlags(t *testing.T) {
	a := &app{}
	cmd := newCollectCmd(a)
	require.NoError(t, cmd.ParseFlags([]string{"--pages", "7"}))

	a.cfg = &config.Config{PagesToScrape: 2, BatchSize: 5}
	applyCollectFlags(a, cmd, 7, 99)
	assert.Equal(t, 7, a.cfg.PagesToScrape)
	assert.Equal(t, 5, a.cfg.BatchSize, "unchanged flag keeps the configured value")
}
