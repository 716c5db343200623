// Package accounts implements a two-phase account lifecycle (signup deferred
// until email confirmation), stateless session issuance, single-use password
// resets, and the guard chain that protects owned resources.
//
// Signup:
//   - PreSignup never writes to the store. The whole pending account rides
//     inside a signed activation token that is emailed to the user; only a
//     valid token submitted back through Signup creates the row. Abandoned
//     signups expire with their token and leave nothing behind.
//
// Sessions:
//   - Auther mints purpose-scoped session JWTs. There is no server side
//     session state; signout only clears the transport cookie, the token
//     stays valid until it expires.
//
// Password reset:
//   - The emailed reset token must match the copy stored on the user row.
//     Spending the link replaces the hash and clears the stored copy in one
//     guarded statement, so a token can only ever be used once.
//
// Guards:
//   - Guards chains RequireSignin, RequireUser, and RequireOwnership (or
//     RequireAdmin) so mutation routes only admit the resource owner or an
//     admin.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the command
//     handlers and Auther to describe signup, login, and password reset
//     events. Sinks run best-effort (errors are logged) so you can forward to
//     a database or queue without blocking authentication.
package accounts
