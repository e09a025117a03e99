package document

import "github.com/aretw0/palaver/pkg/domain"

// MainSpeakerID is the id the first speaker of a document is registered under.
const MainSpeakerID = "main_speaker"

// MainSpeakerType is the speaker type of the main speaker.
const MainSpeakerType = "npc"

// Canonical is the shape-independent form of a document.
// Texts are still raw literals; the graph builder wraps them.
type Canonical struct {
	Pages        []Page
	Speakers     map[string]SpeakerDef
	Background   string
	EscapeAction *domain.Action
	InitAction   *domain.Action
}

// SpeakerDef is a speaker definition waiting for its type's factory.
type SpeakerDef struct {
	Type   string
	Fields map[string]any
}

// Page is a canonical page.
type Page struct {
	ID        string
	SpeakerID string
	Lines     []string
	Choices   []Choice
	OnExit    *domain.Action
}

// Choice is a canonical choice.
type Choice struct {
	Text    string
	Value   string
	Binding Binding
}

// BindingKind tags what a choice is bound to.
type BindingKind int

const (
	BindNone BindingKind = iota
	BindAction
	BindNext
	BindActionThenNext
)

func (k BindingKind) String() string {
	switch k {
	case BindAction:
		return "action"
	case BindNext:
		return "next"
	case BindActionThenNext:
		return "action+next"
	default:
		return "none"
	}
}

// Binding is what selecting a choice does, decoded once.
type Binding struct {
	Kind   BindingKind
	Action *domain.Action
	Next   string
}

// Bind builds the binding for an optional action and an optional next page id.
func Bind(act *domain.Action, next string) Binding {
	switch {
	case act != nil && next != "":
		return Binding{Kind: BindActionThenNext, Action: act, Next: next}
	case next != "":
		return Binding{Kind: BindNext, Next: next}
	case act != nil:
		return Binding{Kind: BindAction, Action: act}
	default:
		return Binding{Kind: BindNone}
	}
}
