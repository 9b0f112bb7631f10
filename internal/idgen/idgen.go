package idgen

import "github.com/google/uuid"

// NewFunc produces gate and message identifiers. Tests stub it to get
// predictable ids.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }
