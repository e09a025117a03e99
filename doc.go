/*
Package palaver runs branching NPC conversations authored as JSON documents.

A document is normalized into one canonical shape, compiled into an immutable
graph of pages and then walked by a per-player conversation that reacts to the
player's choices. Choices can navigate, close the conversation or run game
commands through a host, in one of five modes.

# Usage

	eng, err := palaver.New("./dialogues",
		palaver.WithHost(myServer),
		palaver.WithPresenter(myUI),
	)
	if err != nil {
		log.Fatal(err)
	}

	view, err := eng.Open(ctx, "shopkeeper", player)
	// render view, then feed the player's selection back:
	view, err = eng.Choose(ctx, player.Name(), view.Choices[0].Value)

Documents come in two shapes. The legacy shape holds one page with options that
may carry a response page:

	{"dialogue": {"speaker": "Bob", "text": "Hi <player>",
	  "options": [{"text": "Bye", "response": "See ya"}, {"text": "Nothing", "action": "close"}]}}

The paged shape lists pages explicitly; choices may jump forward by id and run
commands before doing so:

	{"pages": [
	  {"id": "a", "text": "Ready?", "inputs": [{"text": "go", "next": "c",
	    "action": {"type": "console", "commands": ["say {player} is ready"]}}]},
	  {"id": "c", "text": "Off we go."}
	]}

Placeholders such as <player> are resolved each time a page is shown.
*/
package palaver
