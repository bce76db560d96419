package result

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups of tokens or pathways that do not exist.
	ErrNotFound = errors.New("result: not found")
	// ErrDataFormat marks invalid or missing query arguments.
	ErrDataFormat = errors.New("result: invalid argument")
)

// NotFoundError names what could not be found. It matches ErrNotFound.
type NotFoundError struct {
	Kind string // token|pathway
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is reports ErrNotFound equivalence for errors.Is.
func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Repository persists serialized results by token.
type Repository interface {
	Save(ctx context.Context, token string, payload []byte) error
	// Load returns ErrNotFound when the token is unknown.
	Load(ctx context.Context, token string) ([]byte, error)
	Delete(ctx context.Context, token string) (bool, error)
	Tokens(ctx context.Context) ([]string, error)
	Close() error
}
