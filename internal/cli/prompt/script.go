package prompt

import (
	"fmt"
	"sync"
)

// Script answers prompts from a fixed list, in order. An empty Input
// answer takes the default, the way an interactive user pressing enter
// would.
type Script struct {
	mu      sync.Mutex
	answers []interface{}

	// Asked records every prompt message in order
	Asked []string
}

// NewScript creates a Script. Answers are strings for Input, Password and
// Select, bools for Confirm and []string for MultiSelect.
func NewScript(answers ...interface{}) *Script {
	return &Script{answers: answers}
}

// Remaining returns the number of unused answers
func (s *Script) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Script) next(message string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Asked = append(s.Asked, message)
	if len(s.answers) == 0 {
		return nil, fmt.Errorf("no scripted answer for %q", message)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

func (s *Script) str(message string) (string, error) {
	answer, err := s.next(message)
	if err != nil {
		return "", err
	}
	str, ok := answer.(string)
	if !ok {
		return "", fmt.Errorf("scripted answer for %q is %T, want string", message, answer)
	}
	return str, nil
}

func (s *Script) Input(message, def string) (string, error) {
	answer, err := s.str(message)
	if err == nil && answer == "" {
		answer = def
	}
	return answer, err
}

func (s *Script) Password(message string) (string, error) {
	return s.str(message)
}

func (s *Script) Confirm(message string, def bool) (bool, error) {
	answer, err := s.next(message)
	if err != nil {
		return false, err
	}
	b, ok := answer.(bool)
	if !ok {
		return false, fmt.Errorf("scripted answer for %q is %T, want bool", message, answer)
	}
	return b, nil
}

func (s *Script) Select(message string, options []string, def string) (string, error) {
	answer, err := s.str(message)
	if err != nil {
		return "", err
	}
	for _, opt := range options {
		if opt == answer {
			return answer, nil
		}
	}
	return "", fmt.Errorf("scripted answer %q is not an option of %q", answer, message)
}

func (s *Script) MultiSelect(message string, options []string) ([]string, error) {
	answer, err := s.next(message)
	if err != nil {
		return nil, err
	}
	picked, ok := answer.([]string)
	if !ok {
		return nil, fmt.Errorf("scripted answer for %q is %T, want []string", message, answer)
	}
	return picked, nil
}
