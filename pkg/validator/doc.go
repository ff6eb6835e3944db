// Package validator builds declarative validation out of small Rule values.
//
//	err := validator.Apply(
//	    validator.RequiredString("title", title),
//	    validator.ValidEmail("email", email),
//	    validator.Positive("recipient_id", recipientID),
//	)
//
// Apply reports every failed rule at once as ValidationErrors, which
// implements error and can be recovered with ExtractValidationErrors.
package validator
