package zai

import "errors"

// Feiltaksonomi for inferenstrinnet. Speiler hentetrinnet: timeout,
// upstream-feil med status og body, nettverksfeil, og to klasser for
// ubrukelige svar (ikke JSON / bryter skjemaet).
var (
	ErrTimeout         = errors.New("inferens-API brukte for lang tid")
	ErrUpstream        = errors.New("inferens-API-feil")
	ErrNetwork         = errors.New("nettverksfeil mot inferens-API")
	ErrMalformed       = errors.New("inferens-svaret er ikke gyldig JSON")
	ErrSchemaViolation = errors.New("inferens-svaret bryter skjemaet")
)
