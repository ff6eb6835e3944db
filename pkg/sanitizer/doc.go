// Package sanitizer cleans user-controlled text before it reaches a mail
// header, an HTML body or a log line.
//
// All helpers are pure and safe for concurrent use. Apply and Compose chain
// them:
//
//	clean := sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.SingleLine)
//	subject := clean(rendered)
package sanitizer
