package cartpole

import "errors"

// ErrParameterBounds indicates a physical parameter outside its valid range.
var ErrParameterBounds = errors.New("cartpole: parameter out of valid bounds")
