package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("clipboard is not supported on this system")

// System writes to the host clipboard.
type System struct {
	write       func(string) error
	unsupported bool
}

func NewSystem() *System {
	return &System{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

func (s *System) Available() bool {
	return !s.unsupported
}

func (s *System) WriteText(text string) error {
	if s.unsupported {
		return ErrUnsupported
	}
	return s.write(text)
}
