// cmd/boardctl/form.go
package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
	Yes    key.Binding
	No     key.Binding
}

func defaultFormKeys() formKeys {
	return formKeys{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
		Yes:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		No:     key.NewBinding(key.WithKeys("n", "N", "enter"), key.WithHelp("n", "no")),
	}
}

// confirmModel is a single y/N question. Anything but yes declines.
type confirmModel struct {
	prompt   string
	styles   styles
	keys     formKeys
	answered bool
	yes      bool
}

func newConfirmModel(prompt string, s styles) confirmModel {
	return confirmModel{prompt: prompt, styles: s, keys: defaultFormKeys()}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		m.answered, m.yes = true, true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.No), key.Matches(keyMsg, m.keys.Cancel):
		m.answered, m.yes = true, false
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		answer := "no"
		if m.yes {
			answer = "yes"
		}
		return m.prompt + " " + m.styles.faint.Render(answer) + "\n"
	}
	return m.prompt + " " + m.styles.faint.Render("[y/N]") + "\n"
}

// termsForm edits the lease terms of an assignment, one text input per
// field. Blank inputs keep their placeholder value.
type termsForm struct {
	title     string
	labels    []string
	inputs    []textinput.Model
	focus     int
	styles    styles
	keys      formKeys
	submitted bool
	cancelled bool
}

func newTermsForm(title string, fields [][2]string, s styles) termsForm {
	f := termsForm{title: title, styles: s, keys: defaultFormKeys()}
	for i, field := range fields {
		input := textinput.New()
		input.Prompt = ""
		input.Placeholder = field[1]
		input.CharLimit = 32
		input.Width = columnWidth
		if i == 0 {
			input.Focus()
		}
		f.labels = append(f.labels, field[0])
		f.inputs = append(f.inputs, input)
	}
	return f
}

func (f termsForm) Init() tea.Cmd { return textinput.Blink }

func (f termsForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, f.keys.Cancel):
			f.cancelled = true
			return f, tea.Quit
		case key.Matches(keyMsg, f.keys.Submit):
			if f.focus == len(f.inputs)-1 {
				f.submitted = true
				return f, tea.Quit
			}
			cmd := f.move(1)
			return f, cmd
		case key.Matches(keyMsg, f.keys.Next):
			cmd := f.move(1)
			return f, cmd
		case key.Matches(keyMsg, f.keys.Prev):
			cmd := f.move(-1)
			return f, cmd
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *termsForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f termsForm) View() string {
	var b strings.Builder
	b.WriteString(f.styles.title.Render(f.title))
	b.WriteString("\n")
	for i, input := range f.inputs {
		label := f.labels[i]
		if i == f.focus {
			label = f.styles.info.Render(label)
		}
		b.WriteString(label + ": " + input.View() + "\n")
	}
	b.WriteString(f.styles.faint.Render("tab next | enter confirm | esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Values returns each field, falling back to its placeholder when blank.
func (f termsForm) Values() []string {
	values := make([]string, len(f.inputs))
	for i, input := range f.inputs {
		values[i] = strings.TrimSpace(input.Value())
		if values[i] == "" {
			values[i] = input.Placeholder
		}
	}
	return values
}
