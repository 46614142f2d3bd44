package session

import "errors"

var ErrNotFound = errors.New("session value not found")

// KeyOAuthState holds the anti-forgery nonce between the Google redirect
// and its callback.
const KeyOAuthState = "oauth_state"
