package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// loginForm is the email/password form shown while signed out.
type loginForm struct {
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
}

const (
	fieldEmail = iota
	fieldPassword
)

func newLoginForm(email string) loginForm {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Prompt = ""
	emailInput.CharLimit = 254
	emailInput.SetValue(email)

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	f := loginForm{inputs: []textinput.Model{emailInput, password}}
	if email != "" {
		f.focus = fieldPassword
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f loginForm) email() string    { return strings.TrimSpace(f.inputs[fieldEmail].Value()) }
func (f loginForm) password() string { return f.inputs[fieldPassword].Value() }

// setFocus moves the cursor to field i, wrapping around.
func (f *loginForm) setFocus(i int) {
	n := len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = (i%n + n) % n
	f.inputs[f.focus].Focus()
}

// ready reports whether both fields are filled in.
func (f loginForm) ready() bool {
	return f.email() != "" && f.password() != ""
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f loginForm) view() string {
	labels := []string{"Email", "Password"}

	var rows []string
	rows = append(rows, TitleStyle.Render("Sign in to calmerge"))
	for i, in := range f.inputs {
		mark := " "
		if i == f.focus {
			mark = FocusedFieldMark
		}
		rows = append(rows, mark+" "+LabelStyle.Render(labels[i])+" "+in.View())
	}
	rows = append(rows, "")

	switch {
	case f.busy:
		rows = append(rows, lipgloss.NewStyle().Foreground(accentColor).Render("Signing in..."))
	case f.err != "":
		rows = append(rows, ErrorTextStyle.Render(f.err))
	default:
		rows = append(rows, "")
	}

	rows = append(rows, "",
		HelpKeyStyle.Render("enter")+" sign in  •  "+
			HelpKeyStyle.Render("tab")+" next field  •  "+
			HelpKeyStyle.Render("ctrl+g")+" Google  •  "+
			HelpKeyStyle.Render("esc")+" quit")

	return FormStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
