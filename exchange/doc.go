// Package exchange performs the authorization code grant against the
// upstream provider's token endpoint.
//
// Each call to Exchanger.Exchange sends one form-encoded POST carrying
// client_id, client_secret and code, bounded by a timeout and never retried.
// Failures are returned as *Error with a Reason:
//
//   - ReasonRejected: the provider answered without issuing a token, for
//     example GitHub's 200 response with error=bad_verification_code, a non-2xx
//     status, or a body that cannot be parsed.
//   - ReasonUnreachable: connection failure, TLS failure or timeout.
//
// Both reasons also match ErrUpstreamRejected and ErrUpstreamUnreachable
// through errors.Is.
package exchange
