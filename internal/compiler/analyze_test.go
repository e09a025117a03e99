package compiler_test

import (
	"testing"

	"github.com/aretw0/palaver/internal/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	g, err := compiler.New().Compile("analyze", []byte(`{"pages":[
		{"id":"start","inputs":[{"text":"go","next":"middle"},{"text":"lost","next":"nowhere"},{"text":"more","action":"next_page"}]},
		{"id":"middle","inputs":[{"text":"shop","action":{"type":"console","commands":["x"]},"next":"end"}]},
		{"id":"end"},
		{"id":"island","inputs":[{"text":"back","next":"start"}]}
	]}`))
	require.NoError(t, err)

	report := compiler.Analyze(g)
	assert.False(t, report.OK())
	assert.Equal(t, []compiler.Link{{PageID: "start", Choice: "1", Target: "nowhere"}}, report.Dangling)
	assert.Equal(t, []string{"island"}, report.Unreachable)
}

func TestAnalyze_Clean(t *testing.T) {
	g, err := compiler.New().Compile("clean", []byte(`{"dialogue":{"text":"hi","options":[{"text":"a","response":"b"}]}}`))
	require.NoError(t, err)
	assert.True(t, compiler.Analyze(g).OK())
}
