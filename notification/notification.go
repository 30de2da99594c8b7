// Package notification delivers confirmation codes over the channels the
// login flow supports. Delivery internals live behind gateway contracts; the
// auth service only picks a channel and hands over destination and code.
package notification

import "context"

// Sender delivers a confirmation code to a destination on one channel.
type Sender interface {
	SendConfirmationCode(ctx context.Context, destination, code string) error
}
