package fingerprint

import "errors"

// MinSize is the minimum content size in bytes that can be fingerprinted.
//
// Very small inputs do not carry enough signal for an approximate similarity
// fingerprint; providers must reject them with ErrInvalidResource.
const MinSize = 50

var (
	// ErrInvalidResource is returned when content cannot be fingerprinted,
	// e.g. because it is below MinSize or unreadable.
	//
	// Implementations should return an error that satisfies
	// `errors.Is(err, ErrInvalidResource)`.
	ErrInvalidResource = errors.New("resource not fingerprintable")

	// ErrMalformedFingerprint is returned by Distance when a token was not
	// produced by the provider (or was corrupted in transit).
	ErrMalformedFingerprint = errors.New("malformed fingerprint")
)

// Fingerprint is an opaque similarity token derived from resource content.
//
// Tokens are printable and comparable, which makes them safe to persist in
// cache snapshots. The empty string means "absent". No structure beyond that
// may be assumed; only the Provider that produced a token can interpret it.
type Fingerprint string

// Provider produces fingerprints from raw content and scores their
// dissimilarity.
//
// Distance is symmetric and nonnegative; zero means (near-)identical content.
// It is an approximate, heuristic dissimilarity: the triangle inequality is
// NOT guaranteed, so callers must not assume metric-space properties.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Fingerprint derives a token from content.
	// Content below MinSize fails with an ErrInvalidResource-wrapped error.
	Fingerprint(data []byte) (Fingerprint, error)

	// Distance returns the dissimilarity between two tokens.
	Distance(a, b Fingerprint) (float64, error)

	// Name returns the stable name of the provider.
	// Cache snapshots record it so fingerprints from different providers
	// are never mixed.
	Name() string
}

// ByName returns a built-in provider by its stable name.
func ByName(name string) (Provider, bool) {
	switch name {
	case "simhash":
		return NewSimHash(), true
	default:
		return nil, false
	}
}
