package clients

import "context"

// Repo defines the persistence contract for OAuth2 clients.
type Repo interface {
	Create(ctx context.Context, client *Client) error // fails ErrAlreadyExists
	Get(ctx context.Context, id string) (*Client, error)
	Delete(ctx context.Context, id string) error
}
