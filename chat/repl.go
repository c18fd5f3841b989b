package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/wayfarer/core"
)

const (
	// Prompt is printed before every question.
	Prompt = "Your question: "

	// DefaultTitle is the banner title.
	DefaultTitle = "Vietnam Travel Assistant (Hybrid RAG)"

	rule = "============================================================"
)

// REPL reads questions from a reader and writes answers to a writer.
type REPL struct {
	// Title is shown in the banner and the farewell.
	Title string

	session *Session
	in      io.Reader
	out     io.Writer
	reader  <-chan struct{} // closed when the input goroutine of the last Run exits
	logger  *slog.Logger
}

// NewREPL creates a REPL driving session.
func NewREPL(session *Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		Title:   DefaultTitle,
		session: session,
		in:      in,
		out:     out,
		logger:  slog.Default().With("component", "repl"),
	}
}

// IsExitCommand reports whether line ends the session.
func IsExitCommand(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// Run prompts for questions until an exit command, end of input or ctx is
// cancelled. Cancellation is an ordinary way to stop and returns nil.
func (r *REPL) Run(ctx context.Context) error {
	// The reader stops handing out lines once Run returns.
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	r.reader = done
	go func() {
		defer close(done)
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	r.banner()
	for {
		r.printf("%s", Prompt)

		var line string
		select {
		case <-ctx.Done():
			r.printf("\n\nInterrupted. Goodbye!\n")
			return nil
		case l, ok := <-lines:
			if !ok {
				r.printf("\n")
				r.farewell()
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if IsExitCommand(line) {
			r.farewell()
			return nil
		}

		r.printf("\n[Query %d] Processing...\n\n", r.session.Turns()+1)
		result := r.session.Ask(ctx, line)
		if ctx.Err() != nil {
			r.printf("\n\nInterrupted. Goodbye!\n")
			return nil
		}
		r.render(result)
	}
}

// Once answers a single question without the banner or prompt.
func (r *REPL) Once(ctx context.Context, question string) core.TurnResult {
	result := r.session.Ask(ctx, question)
	r.render(result)
	return result
}

func (r *REPL) banner() {
	r.printf("\n%s\n", rule)
	r.printf("%s\n", r.Title)
	r.printf("%s\n", rule)
	r.printf("Using: %s\n", r.session.Backends())
	r.printf("Type 'exit' or 'quit' to end the session\n\n")
}

func (r *REPL) farewell() {
	r.printf("\nThanks for using %s!\n", r.Title)
}

func (r *REPL) render(result core.TurnResult) {
	switch result.State {
	case core.StateDegraded:
		r.printf("%s\n\n", result.Answer)
		return
	case core.StateFailed:
		r.printf("\nUnexpected error: %v\n\n", result.Err)
		return
	}

	r.printf("%s\n", rule)
	if result.FromCache {
		r.printf("Answer (cached):\n")
	} else {
		r.printf("Answer:\n")
	}
	r.printf("%s\n", rule)
	r.printf("%s\n", result.Answer)
	r.printf("Execution time: %.2f seconds\n", result.Elapsed.Seconds())
	r.printf("%s\n\n", rule)
}

func (r *REPL) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.out, format, args...); err != nil {
		r.logger.Debug("write failed", "err", err)
	}
}
