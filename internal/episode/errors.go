package episode

import (
	"errors"
	"fmt"
)

var ErrInvalidEpisodeIndex = errors.New("episode: invalid episode index")

type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("episode: index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error {
	return ErrInvalidEpisodeIndex
}
