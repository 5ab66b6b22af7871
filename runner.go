package lessonkit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/aretw0/lessonkit/pkg/domain"
	"github.com/microcosm-cc/bluemonday"
)

// Runner plays an exploration over line based IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms page text before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

var blockBreaks = strings.NewReplacer(
	"</p>", "\n\n",
	"</div>", "\n",
	"</label>", "\n",
	"<br>", "\n",
)

var textPolicy = bluemonday.StrictPolicy()

// PlainText reduces player HTML to readable text.
func PlainText(fragment string) string {
	text := textPolicy.Sanitize(blockBreaks.Replace(fragment))
	return strings.TrimSpace(html.UnescapeString(text))
}

// Run plays explorationID until it finishes, the input ends or the learner
// types exit.
func (r *Runner) Run(ctx context.Context, engine *Engine, explorationID string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	page, err := engine.Start(ctx, explorationID)
	if err != nil {
		return fmt.Errorf("start error: %w", err)
	}

	if !r.Headless {
		fmt.Fprintf(writer, "--- %s ---\n", page.Title)
	}

	render := true
	for {
		if render {
			r.display(page)
		}
		if page.Finished {
			return nil
		}

		fmt.Fprint(writer, "> ")
		text, err := lineReader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || text == "") {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)
		if input == "exit" || input == "quit" {
			fmt.Fprintln(writer, "Bye!")
			return nil
		}

		next, err := engine.Submit(ctx, explorationID, page.StateID, domain.Submission{
			Answer:      input,
			BlockNumber: page.BlockNumber,
			Params:      page.Params,
		})
		if errors.Is(err, domain.ErrInvalidChange) {
			fmt.Fprintf(writer, "Invalid answer: %v\n", err)
			render = false
			continue
		}
		if err != nil {
			return fmt.Errorf("submit error: %w", err)
		}
		page = next
		render = true
	}
}

func (r *Runner) display(page *domain.Page) {
	parts := []string{PlainText(page.HTML)}
	if page.InteractiveWidgetHTML != "" {
		parts = append(parts, PlainText(page.InteractiveWidgetHTML))
	}
	output := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if output == "" {
		return
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
}
