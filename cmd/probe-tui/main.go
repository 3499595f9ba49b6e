package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/uiprobe/uiprobe/internal/client"
	"github.com/uiprobe/uiprobe/internal/tui"
)

func main() {
	base := flag.String("url", "http://127.0.0.1:8080", "Base URL of the uiprobe server")
	repo := flag.String("repo", "", "Repository path to test (starts a new run)")
	components := flag.String("components", "", "Comma-separated component names (empty lets the server pick a slate)")
	tests := flag.String("tests", "", "Comma-separated test dimensions (accessibility,performance)")
	session := flag.String("session", "", "Attach to an existing session instead of starting a run")
	token := flag.String("token", "", "Auth token (if the server requires it)")
	flag.Parse()

	streamURL, err := buildStreamURL(*base, *repo, *components, *tests, *session)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stream := tui.NewStream(streamURL, client.Options{AuthToken: *token})
	p := tea.NewProgram(tui.New(stream), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildStreamURL picks the attach endpoint when a session is given and the
// run-starting stream endpoint otherwise.
func buildStreamURL(base, repo, components, tests, session string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	q := url.Values{}
	if session != "" {
		u.Path = "/api/events"
		q.Set("session", session)
	} else {
		if repo == "" {
			return "", fmt.Errorf("-repo is required unless -session attaches to a running workflow")
		}
		u.Path = "/api/stream"
		q.Set("repo", repo)
		if components != "" {
			q.Set("components", components)
		}
		if tests != "" {
			q.Set("tests", tests)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
