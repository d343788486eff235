/*
Package cloud is a client for the Dyson device cloud.

A session walks through four states:

	Unprovisioned -> Provisioned -> ChallengeIssued -> Authenticated

Provision confirms the API version. BeginLogin asks the vendor to send a
one-time code to the account's email address (or phone, for the mobile
variants). CompleteLogin exchanges the code and the password for a bearer
token, which is attached to every later request. Device calls require the
Authenticated state and fail locally, without a network call, before that.

A session can also start in the Authenticated state from a token obtained
earlier (Config.AuthToken or SetAuthToken).

Two bindings share the same session: Client blocks until a call is done,
AsyncClient returns a Future right away. Neither retries anything.

All errors of network calls are *errs.Error values; match them with
errors.Is against errs.ErrAPI, errs.ErrAuth and errs.ErrConnection. A
cancelled context is returned as context.Canceled.
*/
package cloud
