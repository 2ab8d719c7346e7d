// Package prompt is the interactive terminal layer. It turns survey
// prompts into the raw choices and option answers the selection
// resolver consumes; no resolution or parsing logic lives here.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/everstacklabs/apkforge/internal/patch"
)

// ErrCancelled reports that the operator aborted an interactive prompt.
var ErrCancelled = errors.New("cancelled by operator")

const customValueLabel = "(custom value)"

func mapInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return err
}

func label(r *patch.Record) string {
	var b strings.Builder
	if r.HasIndex() {
		fmt.Fprintf(&b, "[%d] ", *r.Index)
	}
	b.WriteString(r.Name)
	if r.Universal {
		b.WriteString(" (universal)")
	}
	return b.String()
}

// SelectPatches shows a checkbox list over records and returns the
// chosen ones as raw selector choices. Records whose listing marks
// them enabled start checked. Indexed records select by index, the
// rest by name.
func SelectPatches(records []*patch.Record) ([]patch.Choice, error) {
	if len(records) == 0 {
		return nil, nil
	}

	options := make([]string, len(records))
	var defaults []string
	for i, r := range records {
		options[i] = label(r)
		if r.Enabled != nil && *r.Enabled {
			defaults = append(defaults, options[i])
		}
	}

	var picked []string
	q := &survey.MultiSelect{
		Message:  "Select patches to apply:",
		Options:  options,
		Default:  defaults,
		PageSize: 15,
	}
	if err := survey.AskOne(q, &picked); err != nil {
		return nil, mapInterrupt(err)
	}

	byLabel := make(map[string]*patch.Record, len(records))
	for i, r := range records {
		byLabel[options[i]] = r
	}

	choices := make([]patch.Choice, 0, len(picked))
	for _, l := range picked {
		r := byLabel[l]
		if r.HasIndex() {
			choices = append(choices, patch.IndexChoice(*r.Index))
		} else {
			choices = append(choices, patch.NameChoice(r.Name))
		}
	}
	return choices, nil
}

// Ask is a patch.AskFunc backed by survey. Declining an option skips
// it; choosing to set it either selects among the listing's possible
// values or reads free text. An empty answer with no schema default is
// the explicit null marker; with a default it resolves to the default.
func Ask(r *patch.Record, opt patch.Option) (patch.Answer, error) {
	title := opt.Title
	if title == "" {
		title = opt.Key
	}

	set := false
	confirm := &survey.Confirm{
		Message: fmt.Sprintf("%s: set option %q?", r.Name, title),
		Default: opt.Required != nil && *opt.Required,
	}
	if err := survey.AskOne(confirm, &set); err != nil {
		return patch.Answer{}, mapInterrupt(err)
	}
	if !set {
		return patch.Answer{Skip: true}, nil
	}

	if len(opt.PossibleValues) > 0 {
		return askSelect(opt)
	}
	return askInput(opt)
}

func askSelect(opt patch.Option) (patch.Answer, error) {
	options := append(append([]string{}, opt.PossibleValues...), customValueLabel)

	sel := &survey.Select{
		Message: fmt.Sprintf("Value for %s:", opt.Key),
		Options: options,
	}
	if opt.Default != nil {
		sel.Default = *opt.Default
	}

	var value string
	if err := survey.AskOne(sel, &value); err != nil {
		return patch.Answer{}, mapInterrupt(err)
	}
	if value != customValueLabel {
		return patch.Answer{Value: value}, nil
	}
	return askInput(opt)
}

func askInput(opt patch.Option) (patch.Answer, error) {
	message := fmt.Sprintf("Value for %s", opt.Key)
	if opt.Type != "" {
		message += fmt.Sprintf(" (%s)", opt.Type)
	}

	input := &survey.Input{Message: message + ":"}
	if opt.Default != nil {
		input.Default = *opt.Default
	}

	var value string
	if err := survey.AskOne(input, &value); err != nil {
		return patch.Answer{}, mapInterrupt(err)
	}
	if value == "" && opt.Default == nil {
		return patch.Answer{Null: true}, nil
	}
	return patch.Answer{Value: value}, nil
}
