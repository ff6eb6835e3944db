// Package email sends transactional email through interchangeable providers.
//
// Every provider implements EmailSender and Verifier:
//   - SMTPClient delivers over SMTP using go-mail (implicit TLS or
//     opportunistic STARTTLS, PLAIN auth when a username is set).
//   - the Postmark client uses Postmark's transactional API.
//   - DevSender writes messages to a directory for local development.
//
// All senders validate SendEmailParams before doing any I/O and wrap failures
// in ErrFailedToSendEmail, so callers classify errors with errors.Is.
//
// The templates subpackage wraps rendered bodies in the shared HTML layout and
// emailtest provides an in-process SMTP server for tests.
package email
