package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// chatReply is the subset of an Ollama /api/chat response the CLI displays.
type chatReply struct {
	Model   string `json:"model"`
	Message struct {
		Role     string `json:"role"`
		Content  string `json:"content"`
		Thinking string `json:"thinking"`
	} `json:"message"`
}

// splitThinking separates reasoning-model output wrapped in <think> tags from
// the answer. Some models omit the opening tag, so a lone </think> also
// splits.
func splitThinking(content string) (thinking, answer string) {
	end := strings.Index(content, "</think>")
	if end < 0 {
		return "", strings.TrimSpace(content)
	}
	head, tail := content[:end], content[end+len("</think>"):]
	if start := strings.Index(head, "<think>"); start >= 0 {
		thinking = head[start+len("<think>"):]
		tail = head[:start] + tail
	} else {
		thinking = head
	}
	return strings.TrimSpace(thinking), strings.TrimSpace(tail)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// renderMarkdown writes text to w, rendered through glamour when pretty is
// set. Rendering failures fall back to the plain text.
func renderMarkdown(w io.Writer, text string, pretty bool) error {
	if !pretty {
		_, err := fmt.Fprintln(w, text)
		return err
	}

	width := terminalWidth() - 4
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		_, err = fmt.Fprintln(w, text)
		return err
	}
	out, err := renderer.Render(text)
	if err != nil {
		out = text + "\n"
	}
	_, err = io.WriteString(w, out)
	return err
}
