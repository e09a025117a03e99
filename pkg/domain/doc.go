/*
Package domain contains the core types of the palaver dialogue engine.

It defines the executable dialogue graph (Pages, Choices, Speakers), the
Action values a choice can trigger, the presentation View handed to hosts,
and the persisted Snapshot of a live conversation. The package has no I/O
and no third-party dependencies, so every other package can depend on it.

# Key Entities

  - Graph: the immutable, built form of a conversation document.
  - Page: one screen of dialogue, with lines and choices.
  - Action: a pure description of what a choice does (close, navigate, run commands).
  - Text: a line of text that may need the live conversation to resolve.
  - View: a fully resolved snapshot of the current page, ready to render.
  - Snapshot: what gets persisted to resume a conversation later.
*/
package domain
