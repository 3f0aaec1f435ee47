package utils

import "errors"

var ErrorInvalidValue = errors.New("invalid value")
