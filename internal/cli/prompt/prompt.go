// Package prompt asks the user questions on the terminal
package prompt

import (
	"github.com/AlecAivazis/survey/v2"
)

// Prompter asks questions. Commands take one so tests can script answers.
type Prompter interface {
	Input(message, def string) (string, error)
	Password(message string) (string, error)
	Confirm(message string, def bool) (bool, error)
	Select(message string, options []string, def string) (string, error)
	MultiSelect(message string, options []string) ([]string, error)
}

// Survey prompts interactively on stdin/stdout
type Survey struct {
	opts []survey.AskOpt
}

// NewSurvey creates an interactive prompter
func NewSurvey(opts ...survey.AskOpt) *Survey {
	return &Survey{opts: opts}
}

func (s *Survey) Input(message, def string) (string, error) {
	var answer string
	prompt := &survey.Input{Message: message, Default: def}
	if err := survey.AskOne(prompt, &answer, s.opts...); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Survey) Password(message string) (string, error) {
	var answer string
	prompt := &survey.Password{Message: message}
	opts := append([]survey.AskOpt{survey.WithValidator(survey.Required)}, s.opts...)
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Survey) Confirm(message string, def bool) (bool, error) {
	var answer bool
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &answer, s.opts...); err != nil {
		return false, err
	}
	return answer, nil
}

func (s *Survey) Select(message string, options []string, def string) (string, error) {
	var answer string
	prompt := &survey.Select{Message: message, Options: options}
	if def != "" {
		prompt.Default = def
	}
	if err := survey.AskOne(prompt, &answer, s.opts...); err != nil {
		return "", err
	}
	return answer, nil
}

func (s *Survey) MultiSelect(message string, options []string) ([]string, error) {
	var answer []string
	if len(options) == 0 {
		return nil, nil
	}
	prompt := &survey.MultiSelect{Message: message, Options: options}
	if err := survey.AskOne(prompt, &answer, s.opts...); err != nil {
		return nil, err
	}
	return answer, nil
}
