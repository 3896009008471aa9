// Package common holds sentinels shared across domains.
package common

import "errors"

var (
	ErrNotFound   = errors.New("requested item not found")
	ErrBadRequest = errors.New("bad request")
)
