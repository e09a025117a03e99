package domain

// Player is the capability set the engine needs from a host player.
// Hosts adapt their own player type to it; the engine never inspects anything else.
type Player interface {
	// Name is the profile (login) name. Commands address players by it.
	Name() string
	// DisplayName is the decorated name shown in chat. It may be empty.
	DisplayName() string
	// ScoreboardName is a plain name that is always safe to print.
	ScoreboardName() string
	// UniqueID is the stable identifier of the player.
	UniqueID() string
}

// Subject is what a deferred text or placeholder provider resolves against:
// the live conversation of one player.
type Subject interface {
	Player() Player
	PageID() string
}

// Identity is a plain Player value. It is what gets persisted in snapshots
// and what the CLI and HTTP adapters build from their inputs.
type Identity struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Nickname   string `json:"nickname,omitempty"`
	Scoreboard string `json:"scoreboard,omitempty"`
}

func (i Identity) Name() string        { return i.Username }
func (i Identity) DisplayName() string { return i.Nickname }
func (i Identity) UniqueID() string    { return i.ID }

func (i Identity) ScoreboardName() string {
	if i.Scoreboard != "" {
		return i.Scoreboard
	}
	return i.Username
}

// IdentityOf copies any Player into an Identity.
func IdentityOf(p Player) Identity {
	if id, ok := p.(Identity); ok {
		return id
	}
	if id, ok := p.(*Identity); ok && id != nil {
		return *id
	}
	return Identity{
		ID:         p.UniqueID(),
		Username:   p.Name(),
		Nickname:   p.DisplayName(),
		Scoreboard: p.ScoreboardName(),
	}
}
