package main

import (
	"fmt"
	"qxsense/internal/engine/features"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	inheritedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))
)

type item struct {
	completion features.CompletionItem
}

func (i item) Title() string { return i.completion.Label }

func (i item) Description() string {
	desc := fmt.Sprintf("%s  %s", i.completion.Kind, i.completion.Detail)
	if i.completion.Origin != "" {
		desc += "  " + inheritedStyle.Render("from "+i.completion.Origin)
	}
	return desc
}

func (i item) FilterValue() string { return i.completion.Label }

type model struct {
	list     list.Model
	file     string
	offset   int
	selected *features.CompletionItem
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.list.FilterState() != list.Filtering {
				return m, tea.Quit
			}
		case "enter":
			if it, ok := m.list.SelectedItem().(item); ok && m.list.FilterState() != list.Filtering {
				c := it.completion
				m.selected = &c
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-3)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("%s @ %d | %d candidates", m.file, m.offset, len(m.list.Items())))
	header := fmt.Sprintf("%s\n%s\n", titleStyle("qxsense completions"), status)
	return docStyle.Render(header + "\n" + m.list.View())
}

func newModel(items []features.CompletionItem, file string, offset int) model {
	listItems := make([]list.Item, 0, len(items))
	for _, c := range items {
		listItems = append(listItems, item{completion: c})
	}
	l := list.New(listItems, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Candidates"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{list: l, file: file, offset: offset}
}

// explore shows the candidates in a terminal list and prints the chosen one.
func explore(items []features.CompletionItem, file string, offset int) error {
	final, err := tea.NewProgram(newModel(items, file, offset), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.selected != nil {
		fmt.Println(m.selected.Label)
	}
	return nil
}
