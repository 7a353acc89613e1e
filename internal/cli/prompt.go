package cli

import (
	"context"
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt or declines the
// final confirmation.
var ErrAborted = errors.New("cli: aborted")

// Question is one free-text prompt.
type Question struct {
	Message string
	Help    string
	Default string
	// Check rejects an answer; the prompt is asked again.
	Check func(string) error
}

// Prompter asks the questions behind catalog authoring. Tests replace it
// with scripted answers.
type Prompter interface {
	Text(ctx context.Context, q Question) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	// Choose returns the index of the picked choice.
	Choose(ctx context.Context, message string, choices []string) (int, error)
	// ChooseMany returns the picked indices in choice order.
	ChooseMany(ctx context.Context, message string, choices []string) ([]int, error)
}

// surveyPrompter draws on stderr so stdout stays usable in pipelines.
type surveyPrompter struct {
	stdio survey.AskOpt
}

// NewSurveyPrompter prompts on the controlling terminal.
func NewSurveyPrompter() Prompter {
	return surveyPrompter{stdio: survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)}
}

func (p surveyPrompter) Text(ctx context.Context, q Question) (string, error) {
	var answer string
	opts := []survey.AskOpt{}
	if q.Check != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			s, _ := ans.(string)
			return q.Check(s)
		}))
	}
	err := p.ask(ctx, &survey.Input{Message: q.Message, Help: q.Help, Default: q.Default}, &answer, opts...)
	return answer, err
}

func (p surveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	var answer bool
	err := p.ask(ctx, &survey.Confirm{Message: message, Default: def}, &answer)
	return answer, err
}

func (p surveyPrompter) Choose(ctx context.Context, message string, choices []string) (int, error) {
	var index int
	if err := p.ask(ctx, &survey.Select{Message: message, Options: choices}, &index); err != nil {
		return -1, err
	}
	return index, nil
}

func (p surveyPrompter) ChooseMany(ctx context.Context, message string, choices []string) ([]int, error) {
	var indices []int
	err := p.ask(ctx, &survey.MultiSelect{Message: message, Options: choices}, &indices)
	return indices, err
}

func (p surveyPrompter) ask(ctx context.Context, prompt survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(prompt, answer, append(opts, p.stdio)...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
