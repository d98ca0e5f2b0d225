package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrStackMismatch = errors.New("container is not on top of the stack")
	ErrInvalidState  = errors.New("invalid lifecycle state")
)

// Stack holds the ids of currently open containers of one execution. It is
// not safe for concurrent use: every execution owns its own stack.
type Stack struct {
	items []string
}

// Enter pushes uuid and returns the previous top, or "" when the stack was empty.
func (s *Stack) Enter(uuid string) string {
	parent := s.Current()
	s.items = append(s.items, uuid)

	return parent
}

// Exit pops uuid. Exiting anything but the top leaves the stack untouched.
func (s *Stack) Exit(uuid string) error {
	top := s.Current()
	if top != uuid {
		return fmt.Errorf("exit %s, top %q: %w", uuid, top, ErrStackMismatch)
	}

	s.items = s.items[:len(s.items)-1]

	return nil
}

func (s *Stack) Current() string {
	if len(s.items) == 0 {
		return ""
	}

	return s.items[len(s.items)-1]
}

func (s *Stack) Len() int {
	return len(s.items)
}
