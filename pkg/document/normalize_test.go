package document_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/palaver/pkg/action"
	"github.com/aretw0/palaver/pkg/document"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalize(t *testing.T, src string, opts ...document.Option) *document.Canonical {
	t.Helper()
	doc, err := document.Decode([]byte(src))
	require.NoError(t, err)
	return document.NewNormalizer(action.NewRegistry(), opts...).Normalize(doc)
}

func sequentialIDs() document.Option {
	n := 0
	return document.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	})
}

func TestDecode_Errors(t *testing.T) {
	_, err := document.Decode([]byte(`{"background":"x"}`))
	assert.ErrorIs(t, err, document.ErrMissingShape)

	_, err = document.Decode([]byte(`{"pages":[]}`))
	assert.ErrorIs(t, err, document.ErrNoPages)

	_, err = document.Decode([]byte(`{"pages":[`))
	assert.Error(t, err)

	_, err = document.Decode([]byte(`{"pages":"nope"}`))
	assert.Error(t, err)
}

func TestDecode_MalformedElementsDegrade(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		verify func(t *testing.T, c *document.Canonical)
	}{
		{
			name: "non-object page skipped",
			src:  `{"pages":[{"id":"a","text":"hi"},42,"junk",null]}`,
			verify: func(t *testing.T, c *document.Canonical) {
				require.Len(t, c.Pages, 1)
				assert.Equal(t, "a", c.Pages[0].ID)
			},
		},
		{
			name: "numeric page id",
			src:  `{"pages":[{"id":7,"text":"hi"}]}`,
			verify: func(t *testing.T, c *document.Canonical) {
				assert.Equal(t, "7", c.Pages[0].ID)
			},
		},
		{
			name: "non-object legacy option skipped",
			src:  `{"dialogue":{"text":"hi","options":["junk",{"text":"Bye","action":"close"}]}}`,
			verify: func(t *testing.T, c *document.Canonical) {
				choices := c.Pages[0].Choices
				require.Len(t, choices, 1)
				assert.Equal(t, "Bye", choices[0].Text)
				assert.Equal(t, "0", choices[0].Value)
				assert.Equal(t, domain.Close(), choices[0].Binding.Action)
			},
		},
		{
			name: "non-object speaker skipped",
			src:  `{"pages":[{"id":"a"}],"speakers":{"x":"y","guard":{"name":"Gate Guard"}}}`,
			verify: func(t *testing.T, c *document.Canonical) {
				assert.NotContains(t, c.Speakers, "x")
				assert.Equal(t, "Gate Guard", c.Speakers["guard"].Fields["name"])
			},
		},
		{
			name: "numeric background",
			src:  `{"background":3,"pages":[{"id":"a"}]}`,
			verify: func(t *testing.T, c *document.Canonical) {
				assert.Equal(t, "3", c.Background)
			},
		},
		{
			name: "numeric legacy text",
			src:  `{"dialogue":{"text":5}}`,
			verify: func(t *testing.T, c *document.Canonical) {
				assert.Equal(t, []string{"5"}, c.Pages[0].Lines)
			},
		},
		{
			name: "scalar next and text on inputs",
			src:  `{"pages":[{"id":"1","inputs":[{"text":true,"next":2}]},{"id":"2"}]}`,
			verify: func(t *testing.T, c *document.Canonical) {
				choice := c.Pages[0].Choices[0]
				assert.Equal(t, "true", choice.Text)
				assert.Equal(t, document.BindNext, choice.Binding.Kind)
				assert.Equal(t, "2", choice.Binding.Next)
			},
		},
		{
			name: "object speaker and lines of mixed type",
			src:  `{"pages":[{"id":"a","speaker":{"n":1},"lines":["one",2,{"text":"three"},[4]]}]}`,
			verify: func(t *testing.T, c *document.Canonical) {
				assert.Equal(t, document.MainSpeakerID, c.Pages[0].SpeakerID)
				assert.Equal(t, []string{"one", "2", "three"}, c.Pages[0].Lines)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verify(t, normalize(t, tt.src))
		})
	}
}

func TestDecode_NoUsablePages(t *testing.T) {
	_, err := document.Decode([]byte(`{"pages":[1,"two"]}`))
	assert.ErrorIs(t, err, document.ErrNoPages)

	_, err = document.Decode([]byte(`{"dialogue":"nope"}`))
	assert.ErrorIs(t, err, document.ErrMissingShape)

	_, err = document.Decode([]byte(`[1]`))
	assert.Error(t, err)
}

func TestNormalize_LegacyResponsePages(t *testing.T) {
	c := normalize(t, `{
		"dialogue": {
			"speaker": "Nurse Joy",
			"text": "Welcome!",
			"options": [
				{"text": "Heal", "response": "Your team is healed."},
				{"text": "Bye", "action": "close"},
				{"text": "Shop", "response": "Come back soon."},
				{"text": "Dance", "action": "next_page"},
				{"action": {"type": "console", "commands": ["heal {player}"]}}
			]
		}
	}`)

	require.Len(t, c.Pages, 3)
	main := c.Pages[0]
	assert.Equal(t, document.LegacyMainPageID, main.ID)
	assert.Equal(t, []string{"Welcome!"}, main.Lines)
	assert.Equal(t, document.MainSpeakerID, main.SpeakerID)
	require.Len(t, main.Choices, 5)

	assert.Equal(t, document.Binding{Kind: document.BindNext, Next: "response_0"}, main.Choices[0].Binding)
	assert.Equal(t, document.BindAction, main.Choices[1].Binding.Kind)
	assert.Equal(t, domain.Close(), main.Choices[1].Binding.Action)
	assert.Equal(t, document.Binding{Kind: document.BindNext, Next: "response_2"}, main.Choices[2].Binding)
	assert.Equal(t, document.BindNone, main.Choices[3].Binding.Kind, "legacy only keeps the close name")

	inline := main.Choices[4]
	assert.Equal(t, document.DefaultChoiceText, inline.Text)
	assert.Equal(t, "4", inline.Value)
	require.Equal(t, document.BindAction, inline.Binding.Kind)
	assert.Equal(t, domain.ModeConsole, inline.Binding.Action.Mode)

	for i, want := range []struct {
		id, line string
	}{{"response_0", "Your team is healed."}, {"response_2", "Come back soon."}} {
		page := c.Pages[i+1]
		assert.Equal(t, want.id, page.ID)
		assert.Equal(t, []string{want.line}, page.Lines)
		require.Len(t, page.Choices, 1)
		assert.Equal(t, document.ContinueText, page.Choices[0].Text)
		assert.Equal(t, domain.Close(), page.Choices[0].Binding.Action)
	}

	require.Contains(t, c.Speakers, document.MainSpeakerID)
	assert.Equal(t, "npc", c.Speakers[document.MainSpeakerID].Type)
	assert.Equal(t, "Nurse Joy", c.Speakers[document.MainSpeakerID].Fields["name"])
}

func TestNormalize_LegacyResponseWinsOverAction(t *testing.T) {
	c := normalize(t, `{"dialogue":{"text":"hi","options":[{"text":"a","response":"r","action":"close"}]}}`)
	assert.Equal(t, document.BindNext, c.Pages[0].Choices[0].Binding.Kind)
}

func TestNormalize_PagedRoundTrip(t *testing.T) {
	c := normalize(t, `{
		"background": "custom.png",
		"escape_action": "noop",
		"init_action": {"type": "tell", "commands": ["Welcome"]},
		"pages": [
			{"id": "p1", "speaker": "Guide", "text": "Hello <player>",
			 "inputs": [
				{"type": "option", "text": "Go", "next": "p2"},
				{"type": "option", "text": "Pay", "value": "pay", "next": "p2",
				 "action": {"type": "command", "commands": ["/pay {p} 10"]}},
				{"type": "option", "text": "Broken", "action": "does_not_exist"},
				{"type": "text", "text": "ignored"},
				{"text": "Leave", "action": "close"}
			 ]},
			{"id": "p2", "speaker": "Guard", "lines": ["one", {"text": "two"}, 3], "text": "ignored", "action": "close"}
		]
	}`)

	assert.Equal(t, "custom.png", c.Background)
	assert.Equal(t, domain.NoOp(), c.EscapeAction)
	require.NotNil(t, c.InitAction)
	assert.Equal(t, domain.ModeWhisper, c.InitAction.Mode)
	assert.False(t, c.InitAction.CloseAfter)

	require.Len(t, c.Pages, 2)
	p1, p2 := c.Pages[0], c.Pages[1]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, document.MainSpeakerID, p1.SpeakerID)
	assert.Equal(t, []string{"Hello <player>"}, p1.Lines)

	require.Len(t, p1.Choices, 4)
	assert.Equal(t, "0", p1.Choices[0].Value)
	assert.Equal(t, document.Binding{Kind: document.BindNext, Next: "p2"}, p1.Choices[0].Binding)

	pay := p1.Choices[1]
	assert.Equal(t, "pay", pay.Value)
	assert.Equal(t, document.BindActionThenNext, pay.Binding.Kind)
	assert.Equal(t, "p2", pay.Binding.Next)
	assert.Equal(t, []string{"/pay {p} 10"}, pay.Binding.Action.Commands)

	assert.Equal(t, "2", p1.Choices[2].Value)
	assert.Equal(t, document.BindNone, p1.Choices[2].Binding.Kind)
	assert.Equal(t, "Leave", p1.Choices[3].Text)
	assert.Equal(t, "3", p1.Choices[3].Value)

	assert.Equal(t, "Guard", p2.SpeakerID, "other speakers are kept verbatim")
	assert.Equal(t, []string{"one", "two"}, p2.Lines, "lines win over text")
	assert.Equal(t, domain.Close(), p2.OnExit)
	assert.Empty(t, p2.Choices)
}

func TestNormalize_GeneratedAndDuplicateIDs(t *testing.T) {
	c := normalize(t, `{"pages":[
		{"id": "a", "text": "first"},
		{"text": "anonymous"},
		{"id": "a", "text": "duplicate"}
	]}`, sequentialIDs())

	require.Len(t, c.Pages, 3)
	assert.Equal(t, []string{"a", "gen-1", "gen-2"}, []string{c.Pages[0].ID, c.Pages[1].ID, c.Pages[2].ID})
	assert.Equal(t, []string{"duplicate"}, c.Pages[2].Lines)
}

func TestNormalize_UUIDsByDefault(t *testing.T) {
	c := normalize(t, `{"pages":[{"text":"x"},{"text":"y"}]}`)
	assert.Len(t, c.Pages[0].ID, 36)
	assert.NotEqual(t, c.Pages[0].ID, c.Pages[1].ID)
}

func TestNormalize_PagesWinOverDialogue(t *testing.T) {
	c := normalize(t, `{"pages":[{"id":"only","text":"paged"}],"dialogue":{"text":"legacy"}}`)
	require.Len(t, c.Pages, 1)
	assert.Equal(t, "only", c.Pages[0].ID)
}

func TestNormalize_DeclaredSpeakers(t *testing.T) {
	c := normalize(t, `{
		"speakers": {"guard": {"type": "npc", "name": "Gate Guard", "portrait": "guard.png"}, "sign": {"name": "Sign"}},
		"pages": [{"text": "no speaker"}, {"speaker": "guard", "text": "halt"}]
	}`)

	assert.Equal(t, document.MainSpeakerID, c.Pages[0].SpeakerID)
	assert.Equal(t, "guard", c.Pages[1].SpeakerID)
	assert.Equal(t, "npc", c.Speakers["guard"].Type)
	assert.Equal(t, "Gate Guard", c.Speakers["guard"].Fields["name"])
	assert.Equal(t, "", c.Speakers["sign"].Type)
	assert.Equal(t, "", c.Speakers[document.MainSpeakerID].Fields["name"])
}

func TestNormalize_DeclaredSpeakerOnFirstPage(t *testing.T) {
	c := normalize(t, `{
		"speakers": {"guard": {"name": "Gate Guard", "portrait": "guard.png"}},
		"pages": [{"speaker": "guard", "text": "halt"}, {"speaker": "guard", "text": "go"}, {"speaker": "Bob"}, {"speaker": "Bob"}]
	}`)

	assert.Equal(t, "guard", c.Pages[0].SpeakerID)
	assert.Equal(t, "guard", c.Pages[1].SpeakerID)
	assert.Equal(t, "Bob", c.Pages[2].SpeakerID)
	assert.Equal(t, "guard", c.Speakers[document.MainSpeakerID].Fields["name"])
}

func TestNormalize_NamedInputs(t *testing.T) {
	actions := action.NewRegistry()
	actions.RegisterInput("confirm", action.Input{
		{Text: "Yes", Next: "done"},
		{Text: "No", Value: "no", Action: domain.Close()},
	})

	doc, err := document.Decode([]byte(`{"pages":[{"id":"q","inputs":[{"text":"first"},"confirm","unknown"]},{"id":"done"}]}`))
	require.NoError(t, err)
	c := document.Normalize(doc, actions)

	choices := c.Pages[0].Choices
	require.Len(t, choices, 3)
	assert.Equal(t, "0", choices[0].Value)
	assert.Equal(t, "Yes", choices[1].Text)
	assert.Equal(t, "1", choices[1].Value)
	assert.Equal(t, document.BindNext, choices[1].Binding.Kind)
	assert.Equal(t, "no", choices[2].Value)
	assert.Equal(t, document.BindAction, choices[2].Binding.Kind)
}

func TestNormalize_NumericValues(t *testing.T) {
	c := normalize(t, `{"pages":[{"inputs":[{"text":"a","value":7},{"text":"b","value":null}]}]}`)
	assert.Equal(t, "7", c.Pages[0].Choices[0].Value)
	assert.Equal(t, "1", c.Pages[0].Choices[1].Value)
}

func TestBind(t *testing.T) {
	assert.Equal(t, document.BindNone, document.Bind(nil, "").Kind)
	assert.Equal(t, "none", document.BindNone.String())
	assert.Equal(t, "action+next", document.Bind(domain.Close(), "x").Kind.String())
}
