// Package auth keeps the signed-in user's session in one process-wide cell
// and gates routes on it.
//
// Identity provider events flow one way: gotrue emits, the Synchronizer
// derives a Session and publishes it to the SessionStore, and the Protected
// and Public middleware read the store's snapshot on every request. Pages
// keep a SessionStream open so that a sign-in or sign-out elsewhere moves
// them off a route their guard no longer allows.
package auth
