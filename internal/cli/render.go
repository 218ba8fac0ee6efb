package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/leofalp/directchat/internal/utils"
	"github.com/leofalp/directchat/providers/ai"
	"github.com/leofalp/directchat/providers/ai/envelope"
)

// Output formats of the stream command.
const (
	formatPretty   = "pretty"
	formatEnvelope = "envelope"
)

// renderer writes stream events to a terminal or pipe.
type renderer struct {
	out    io.Writer
	format string

	reasoningStyle lipgloss.Style
	metaStyle      lipgloss.Style
	errorStyle     lipgloss.Style

	inReasoning    bool
	printedContent bool
	failure        string
}

func newRenderer(out io.Writer, format string) *renderer {
	// Colors are only emitted when out is a terminal.
	lg := lipgloss.NewRenderer(out)
	return &renderer{
		out:            out,
		format:         format,
		reasoningStyle: lg.NewStyle().Faint(true).Italic(true),
		metaStyle:      lg.NewStyle().Foreground(lipgloss.Color("6")),
		errorStyle:     lg.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
}

// Render writes one event.
func (r *renderer) Render(event ai.Event) error {
	if e, ok := event.(ai.Error); ok {
		r.failure = e.Message
	}
	if r.format == formatEnvelope {
		frame, err := envelope.FormatFrame(event)
		if err != nil {
			return err
		}
		_, err = io.WriteString(r.out, frame)
		return err
	}
	return r.renderPretty(event)
}

// Err returns the message of the last Error event, if any.
func (r *renderer) Err() error {
	if r.failure == "" {
		return nil
	}
	return errors.New(r.failure)
}

func (r *renderer) renderPretty(event ai.Event) error {
	switch e := event.(type) {
	case ai.Reasoning:
		r.inReasoning = true
		return r.write(styleLines(r.reasoningStyle, e.Text))
	case ai.ReasoningFinish:
		if r.inReasoning {
			r.inReasoning = false
			return r.write("\n\n")
		}
	case ai.Text:
		r.printedContent = true
		return r.write(e.Text)
	case ai.Content:
		r.printedContent = true
		return r.write(e.Text)
	case ai.ContentFinal:
		// Deltas were already printed; the final text only matters when
		// the adapter sent none.
		if !r.printedContent {
			r.printedContent = true
			return r.write(e.Text)
		}
	case ai.WebSearchStatus:
		return r.meta("web search: " + e.Stage)
	case ai.WebSearchResults:
		var lines []string
		for _, result := range e.Results {
			lines = append(lines, fmt.Sprintf("%d. %s <%s>", result.Index, result.Title, result.Href))
		}
		return r.meta(strings.Join(lines, "\n"))
	case ai.StatusUpdate:
		return r.meta(e.Stage)
	case ai.ToolCall:
		args, _ := json.Marshal(e.Args)
		return r.meta(fmt.Sprintf("tool call %s(%s)", e.Name, args))
	case ai.CodeExecutable:
		language := strings.ToLower(utils.FirstNonEmpty(deref(e.Language), "python"))
		return r.write(fmt.Sprintf("\n```%s\n%s\n```\n", language, strings.TrimRight(deref(e.Code), "\n")))
	case ai.CodeExecutionResult:
		if e.Output != nil {
			return r.write(fmt.Sprintf("\n```\n%s\n```\n", strings.TrimRight(*e.Output, "\n")))
		}
		if e.ImageURL != nil {
			return r.meta("code output image: " + utils.TruncateString(*e.ImageURL, 64))
		}
	case ai.ImageGeneration:
		return r.meta("image: " + utils.TruncateString(e.ImageURL, 64))
	case ai.Error:
		return r.write("\n" + r.errorStyle.Render("error: "+e.Message) + "\n")
	case ai.Finish:
		return r.write("\n" + r.metaStyle.Render("["+e.Reason+"]") + "\n")
	}
	return nil
}

func (r *renderer) meta(text string) error {
	if text == "" {
		return nil
	}
	return r.write(styleLines(r.metaStyle, text) + "\n")
}

func (r *renderer) write(text string) error {
	_, err := io.WriteString(r.out, text)
	return err
}

// styleLines styles each line of text on its own. Rendering a multi-line
// block at once would pad every line to the widest one.
func styleLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
