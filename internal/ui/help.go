// ABOUTME: Custom help template for Cobra commands with lipgloss styling
// ABOUTME: Styles headings, command names, and flag names in help output
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	helpHeadingStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorInfo)

	helpCommandStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Command groups shown in root help
const (
	GroupReconcile = "reconcile"
	GroupInspect   = "inspect"
)

// SetupHelpTemplate configures styled help for cmd and all its subcommands
// and registers the command groups used by root help.
func SetupHelpTemplate(cmd *cobra.Command) {
	cobra.AddTemplateFunc("styleHeading", styleHeading)
	cobra.AddTemplateFunc("styleCommand", styleCommand)
	cobra.AddTemplateFunc("styleDesc", styleDesc)
	cobra.AddTemplateFunc("styleExample", styleExample)
	cobra.AddTemplateFunc("styleFlags", styleFlags)

	cmd.AddGroup(
		&cobra.Group{ID: GroupReconcile, Title: "Reconcile Commands:"},
		&cobra.Group{ID: GroupInspect, Title: "Inspect Commands:"},
	)

	cmd.SetUsageTemplate(helpTemplate)
	cmd.SetHelpTemplate(helpTemplate)
}

func styleHeading(s string) string {
	return helpHeadingStyle.Render(s)
}

func styleCommand(s string) string {
	return helpCommandStyle.Render(s)
}

func styleDesc(s string) string {
	return helpDescStyle.Render(s)
}

// styleExample mutes comment lines and highlights command lines
func styleExample(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			lines[i] = helpDescStyle.Render(line)
		case trimmed != "":
			lines[i] = helpCommandStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// styleFlags renders pflag usages with the flag column highlighted
func styleFlags(fs *pflag.FlagSet) string {
	usages := strings.TrimRight(fs.FlagUsages(), " \n")
	lines := strings.Split(usages, "\n")
	for i, line := range lines {
		// FlagUsages separates the flag column from the description with 3+ spaces
		idx := strings.Index(line, "   ")
		trimmed := strings.TrimLeft(line, " ")
		if idx <= 0 || !strings.HasPrefix(trimmed, "-") {
			continue
		}
		lines[i] = helpFlagStyle.Render(line[:idx]) + line[idx:]
	}
	return strings.Join(lines, "\n")
}

const helpTemplate = `{{if .Long}}{{.Long}}{{else}}{{.Short}}{{end}}

{{styleHeading "Usage:"}}
  {{styleCommand .UseLine}}{{if .HasAvailableSubCommands}}
  {{styleCommand .CommandPath}} {{styleDesc "[command]"}}{{end}}{{if gt (len .Aliases) 0}}

{{styleHeading "Aliases:"}}
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

{{styleHeading "Examples:"}}
{{styleExample .Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

{{styleHeading "Available Commands:"}}{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{styleCommand (rpad .Name .NamePadding)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{styleHeading .Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{styleCommand (rpad .Name .NamePadding)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

{{styleHeading "Additional Commands:"}}{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{styleCommand (rpad .Name .NamePadding)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{styleHeading "Flags:"}}
{{styleFlags .LocalFlags}}{{end}}{{if .HasAvailableInheritedFlags}}

{{styleHeading "Global Flags:"}}
{{styleFlags .InheritedFlags}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{styleCommand (print .CommandPath " [command] --help")}}" for more information about a command.{{end}}
`
