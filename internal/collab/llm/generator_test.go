package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidesmith/internal/pipeline"
)

func TestGenerator_CarriesPlanAndFeedback(t *testing.T) {
	client := &fakeClient{reply: `local decktheme = require("decktheme")`}
	g := NewGenerator(client, nil)

	out, err := g.Generate(context.Background(), pipeline.GenerateInput{
		Topic:     "Solar Energy",
		Plan:      "Slide 1: title",
		Feedback:  "missing save call",
		Iteration: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.OutcomeSuccess, out.Kind)
	assert.Contains(t, client.lastUser, "Slide 1: title")
	assert.Contains(t, client.lastUser, "missing save call")
	assert.Contains(t, client.lastSystem, "decktheme")
}

func TestGenerator_StripsMarkdownFence(t *testing.T) {
	client := &fakeClient{reply: "```lua\nlocal deck = 1\ndeck:save(\"x\")\n```"}
	g := NewGenerator(client, nil)

	out, err := g.Generate(context.Background(), pipeline.GenerateInput{Topic: "t", Plan: "p"})
	require.NoError(t, err)
	assert.Equal(t, "local deck = 1\ndeck:save(\"x\")", out.Payload)
}

func TestGenerator_EmptyScriptIsErrorOutcome(t *testing.T) {
	client := &fakeClient{reply: "```\n```"}
	g := NewGenerator(client, nil)

	out, err := g.Generate(context.Background(), pipeline.GenerateInput{Topic: "t", Plan: "p"})
	require.NoError(t, err)
	assert.Equal(t, pipeline.OutcomeError, out.Kind)
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "local a = 1", "local a = 1"},
		{"plain fence", "```\nlocal a = 1\n```", "local a = 1"},
		{"language tag", "```lua\nlocal a = 1\n```", "local a = 1"},
		{"surrounding whitespace", "  ```lua\nlocal a = 1\n```  ", "local a = 1"},
		{"unclosed fence", "```lua\nlocal a = 1", "local a = 1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripFences(tc.in))
		})
	}
}
