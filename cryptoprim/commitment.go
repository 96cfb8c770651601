package cryptoprim

// Commitment is an opaque, binding-and-hiding commitment to a value
// under a blinding factor, standing in for the production Pedersen
// commitment used for Dust outputs and note values. It is built from
// the same transient hash used elsewhere for circuit-friendly
// structures, so a commitment can be recomputed inside a proof circuit
// from (value, blinding) without any elliptic-curve machinery this
// module does not otherwise need.
type Commitment TransientHash

// Commit computes a commitment to value under blinding, domain-tagged
// so commitments to Dust outputs, registrations, and note values can
// never collide across those use-cases even for identical payloads.
func Commit(domain string, value Fr, blinding Fr) Commitment {
	v := value.Bytes()
	b := blinding.Bytes()
	return Commitment(HashTransient("commit:"+domain, v[:], b[:]))
}

// Equal reports whether two commitments are identical.
func (c Commitment) Equal(other Commitment) bool { return c == other }

// IsZero reports whether c is the all-zero commitment.
func (c Commitment) IsZero() bool { return c == Commitment{} }
