package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"chat-widget/internal/conversation"
	"chat-widget/internal/widget"
)

const replHelp = "Commands: /clear resets the chat, /history reprints it, /quit exits. A number picks a suggestion."

func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	for _, m := range a.widget.Messages() {
		printMessage(out, m)
	}
	fmt.Fprintf(out, "chat id: %s\n%s\n", a.chatID, replHelp)
	printSuggestions(out, a.widget.Suggestions())

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			for _, m := range a.widget.Clear(ctx) {
				printMessage(out, m)
			}
			printSuggestions(out, a.widget.Suggestions())
			continue
		case "/history":
			for _, m := range a.widget.Messages() {
				printMessage(out, m)
			}
			continue
		}

		line = pickSuggestion(line, a.widget.Suggestions())
		msgs, err := a.widget.Send(ctx, line)
		if errors.Is(err, widget.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Msg("message not sent")
			continue
		}
		printMessage(out, msgs[len(msgs)-1])
		if ctx.Err() != nil {
			return nil
		}
	}
}

// pickSuggestion maps "N" to the N-th suggestion when suggestions are shown.
func pickSuggestion(line string, suggestions []string) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(suggestions) {
		return line
	}
	return suggestions[n-1]
}

func printSuggestions(out io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintln(out, "Try asking:")
	for i, s := range suggestions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, s)
	}
}

func printMessage(out io.Writer, m conversation.Message) {
	stamp := m.Timestamp.Local().Format("15:04")
	if m.Role == conversation.RoleUser {
		fmt.Fprintf(out, "[%s] you: %s\n", stamp, m.Content)
		return
	}
	label := "bot"
	if m.IsError {
		label = "bot (error)"
	}
	fmt.Fprintf(out, "[%s] %s:\n%s", stamp, label, renderMarkdown(m.Content))
}

func renderMarkdown(content string) string {
	styled, err := glamour.Render(content, "dark")
	if err != nil {
		log.Debug().Err(err).Msg("glamour render failed, printing raw")
		return content + "\n"
	}
	return styled
}
