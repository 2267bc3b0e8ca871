package providers

import (
	"context"
	"errors"
)

// ErrBlocked is returned when the model refuses the prompt or image.
var ErrBlocked = errors.New("vision request blocked")

// VisionClient sends one image plus an instruction to a vision model and
// returns the model's raw text answer.
type VisionClient interface {
	Name() string
	Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error)
}
