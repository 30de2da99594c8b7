package clients

import "github.com/pkg/errors"

var (
	ErrNotFound      = errors.New("client not found")
	ErrAlreadyExists = errors.New("client already exists")
	ErrInvalidScope  = errors.New("scope not allowed for client")
)
