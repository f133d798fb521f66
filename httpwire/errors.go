package httpwire

// StatusFor extracts the HTTP status code a caller should respond with for
// err, defaulting to 400 for errors this package didn't produce itself.
func StatusFor(err error) int {
	if pe, ok := err.(*ParseError); ok {
		return pe.Status
	}
	return 400
}
