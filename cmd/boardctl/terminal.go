// cmd/boardctl/terminal.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/javajoker/tink-backend/internal/workflow"
)

// terminal is the confirmer, notifier and assignment form of one CLI run.
// On an interactive terminal the prompts run as bubbletea programs; piped
// input is read line by line.
type terminal struct {
	in        *bufio.Reader
	tty       *os.File
	out       io.Writer
	styles    styles
	assumeYes bool
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	t := &terminal{in: bufio.NewReader(in), out: out, styles: defaultStyles()}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		t.tty = f
	}
	return t
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *terminal) run(ctx context.Context, model tea.Model) (tea.Model, error) {
	return tea.NewProgram(model,
		tea.WithInput(t.tty),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	).Run()
}

func (t *terminal) Confirm(ctx context.Context, prompt string) bool {
	if t.assumeYes {
		fmt.Fprintln(t.out, t.styles.faint.Render(prompt+" (yes)"))
		return true
	}

	if t.tty != nil {
		final, err := t.run(ctx, newConfirmModel(prompt, t.styles))
		if err != nil {
			return false
		}
		return final.(confirmModel).yes
	}

	fmt.Fprintf(t.out, "%s [y/N]: ", prompt)
	answer, err := t.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

func (t *terminal) Alert(_ context.Context, message string) {
	fmt.Fprintln(t.out, t.styles.alert.Render("! "+message))
}

func (t *terminal) Notify(_ context.Context, message string) {
	fmt.Fprintln(t.out, t.styles.info.Render(message))
}

// Open asks for each term with the draft value as default and submits the
// result.
func (t *terminal) Open(ctx context.Context, draft workflow.AssignmentDraft, submit workflow.SubmitFunc) error {
	title := fmt.Sprintf("Assign %s to %s", workflow.DisplayName(draft.Application), draft.Property.Name)
	fields := [][2]string{
		{"Monthly rent", strconv.FormatFloat(draft.Terms.Rent, 'f', -1, 64)},
		{"Security deposit", strconv.FormatFloat(draft.Terms.Deposit, 'f', -1, 64)},
		{"Lease start", draft.Terms.StartDate.Format(dateLayout)},
		{"Lease end", draft.Terms.EndDate.Format(dateLayout)},
	}

	var (
		values []string
		err    error
	)
	if t.tty != nil {
		values, err = t.runForm(ctx, title, fields)
	} else {
		fmt.Fprintln(t.out, t.styles.title.Render(title))
		values, err = t.askAll(fields)
	}
	if err != nil {
		return err
	}

	terms, err := parseTerms(draft.Terms, values)
	if err != nil {
		return err
	}
	return submit(ctx, terms)
}

func (t *terminal) runForm(ctx context.Context, title string, fields [][2]string) ([]string, error) {
	final, err := t.run(ctx, newTermsForm(title, fields, t.styles))
	if err != nil {
		return nil, fmt.Errorf("assignment form: %w", err)
	}
	form := final.(termsForm)
	if !form.submitted {
		return nil, workflow.ErrDeclined
	}
	return form.Values(), nil
}

func (t *terminal) askAll(fields [][2]string) ([]string, error) {
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		fmt.Fprintf(t.out, "%s [%s]: ", field[0], field[1])
		answer, err := t.readLine()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", strings.ToLower(field[0]), err)
		}
		if answer == "" {
			answer = field[1]
		}
		values = append(values, answer)
	}
	return values, nil
}

const dateLayout = "2006-01-02"

// parseTerms reads rent, deposit, start and end in that order.
func parseTerms(terms workflow.AssignmentTerms, values []string) (workflow.AssignmentTerms, error) {
	var err error
	if terms.Rent, err = strconv.ParseFloat(values[0], 64); err != nil {
		return terms, fmt.Errorf("monthly rent: %w", err)
	}
	if terms.Deposit, err = strconv.ParseFloat(values[1], 64); err != nil {
		return terms, fmt.Errorf("security deposit: %w", err)
	}
	if terms.StartDate, err = time.Parse(dateLayout, values[2]); err != nil {
		return terms, fmt.Errorf("lease start: %w", err)
	}
	if terms.EndDate, err = time.Parse(dateLayout, values[3]); err != nil {
		return terms, fmt.Errorf("lease end: %w", err)
	}
	return terms, nil
}
