package commands

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

//go:embed topics/*.md
var topicsFS embed.FS

func newDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show documentation topics",
		Long:  `docs lists the available documentation topics, or renders one of them.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listTopics(cmd)
			}
			return showTopic(cmd, args[0])
		},
	}
}

func listTopics(cmd *cobra.Command) error {
	names, err := topicNames()
	if err != nil {
		return err
	}
	cmd.Println("Available topics:")
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	cmd.Println("\nUse \"nestup docs <topic>\" to read one.")
	return nil
}

func showTopic(cmd *cobra.Command, name string) error {
	content, err := topicsFS.ReadFile("topics/" + name + ".md")
	if err != nil {
		names, _ := topicNames()
		return fmt.Errorf("unknown topic %q (available: %s)", name, strings.Join(names, ", "))
	}
	cmd.Print(renderMarkdown(string(content)))
	return nil
}

// renderMarkdown renders with glamour when stdout is a terminal and falls
// back to the raw markdown otherwise.
func renderMarkdown(content string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return content
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

func topicNames() ([]string, error) {
	entries, err := topicsFS.ReadDir("topics")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".md"))
	}
	sort.Strings(names)
	return names, nil
}
