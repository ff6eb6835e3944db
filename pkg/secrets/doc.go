// Package secrets seals secret settings values (SMTP passwords, provider
// tokens) so they can sit in the settings table without being readable.
//
// Sealed values look like "enc:<base64>". Reveal passes plaintext values
// through untouched, which lets operators migrate settings one key at a time.
package secrets
