package fetcher

import "errors"

// Feiltaksonomi for hentetrinnet. Alle bevarer opprinnelig detalj fra
// GitHub via wrapping, slik at errors.Is kan brukes til klassifisering
// og feilmeldingen fortsatt kan logges ordrett.
var (
	ErrInvalidURL    = errors.New("ugyldig repository-URL")
	ErrRepoNotFound  = errors.New("repository ikke funnet")
	ErrRateLimited   = errors.New("GitHub API rate limit nådd")
	ErrBadCredential = errors.New("ugyldig GitHub-token")
	ErrUpstream      = errors.New("GitHub API-feil")
	ErrNetwork       = errors.New("nettverksfeil")
)
