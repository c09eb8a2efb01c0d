// Package fingerprint defines the similarity fingerprint contract and the
// built-in SimHash provider.
//
// A Fingerprint is an opaque token derived from resource content. A Provider
// pairs token derivation with a nonnegative, symmetric dissimilarity function
// over tokens. The distance is approximate: it is NOT a strict metric and the
// triangle inequality does not hold in general.
//
// # Usage
//
//	p := fingerprint.NewSimHash()
//	fp, err := p.Fingerprint(content)
//	d, err := p.Distance(fp, other)
//
// Content below MinSize bytes cannot be fingerprinted; Fingerprint fails with
// an error satisfying errors.Is(err, fingerprint.ErrInvalidResource).
package fingerprint
