package palaver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/palaver/pkg/domain"
)

// Runner drives one conversation from a line-based input, such as a terminal.
// Pages are shown by the engine's presenter; the runner only reads selections.
//
// Each line is either a choice number (1-based), a raw choice value, "esc"
// to escape, or "quit" to close the conversation.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
}

// NewRunner creates a Runner over the given IO.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run opens document for player and loops until the conversation closes or input ends.
func (r *Runner) Run(ctx context.Context, eng *Engine, document string, player domain.Player) error {
	if r.Input == nil {
		return errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return errors.New("output writer must be set (use os.Stdout)")
	}

	view, err := eng.Open(ctx, document, player)
	if err != nil {
		return err
	}

	lines := bufio.NewReader(r.Input)
	for view.Status == domain.StatusActive {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		input := strings.TrimSpace(text)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("input error: %w", err)
			}
			if input == "" {
				return eng.Close(ctx, player.Name())
			}
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit":
			return eng.Close(ctx, player.Name())
		case "esc", "escape":
			view, err = eng.Escape(ctx, player.Name())
		default:
			view, err = eng.Choose(ctx, player.Name(), selection(view, input))
		}

		if errors.Is(err, domain.ErrUnknownChoice) {
			fmt.Fprintf(r.Output, "No choice %q.\n", input)
			view, err = eng.View(player.Name())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// selection maps a 1-based number to the value of that choice.
func selection(view domain.View, input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(view.Choices) {
		return view.Choices[n-1].Value
	}
	return input
}
