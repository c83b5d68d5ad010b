package clipboard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteText(t *testing.T) {
	var got string
	s := &System{write: func(text string) error {
		got = text
		return nil
	}}

	assert.True(t, s.Available())
	assert.NoError(t, s.WriteText("copy me"))
	assert.Equal(t, "copy me", got)
}

func TestWriteTextUnsupported(t *testing.T) {
	s := &System{unsupported: true, write: func(string) error {
		t.Fatal("should not be called")
		return nil
	}}

	assert.False(t, s.Available())
	assert.ErrorIs(t, s.WriteText("x"), ErrUnsupported)
}

func TestWriteTextDenied(t *testing.T) {
	denied := errors.New("denied")
	s := &System{write: func(string) error { return denied }}

	assert.ErrorIs(t, s.WriteText("x"), denied)
}
