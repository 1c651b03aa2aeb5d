package model

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken models a row in the `refresh_token` table. Rows form simple
// forward chains through the Next pointer: redeeming a token creates a new
// row and sets the old row's Next to it, exactly once. A row with Next set is
// spent; presenting it again is treated as evidence of theft.
//
// Fields:
//  ID       – opaque unique identifier, generated at creation.
//  Owner    – the user the token was issued to (status and authorities are
//             loaded alongside so the service can re-issue claims).
//  IssuedAt – when the token was created.
//  ExpireAt – IssuedAt plus the configured refresh TTL.
//  Next     – id of the row created when this token was redeemed. Nil while
//             the token is still redeemable; set at most once, never cleared.
type RefreshToken struct {
	ID       uuid.UUID  // refresh_token.id
	Owner    User       // refresh_token.user_id (joined)
	IssuedAt time.Time  // refresh_token.issued_at
	ExpireAt time.Time  // refresh_token.expire_at
	Next     *uuid.UUID // refresh_token.next (nullable)
}

// Spent reports whether the token has already been redeemed.
func (t *RefreshToken) Spent() bool { return t.Next != nil }
