// Package equality provides a three-valued verdict for comparing names.
//
// Unknown means there was no signal, it is never treated as a mismatch.
package equality

// Equality is the result of comparing two names.
type Equality int

const (
	// Unknown means neither names nor years provided a usable signal.
	Unknown Equality = iota
	// Equal means the compared parts agree.
	Equal
	// Different means the compared parts disagree.
	Different
)

var eqStr = map[Equality]string{
	Unknown:   "UNKNOWN",
	Equal:     "EQUAL",
	Different: "DIFFERENT",
}

// String implements fmt.Stringer.
func (e Equality) String() string {
	if s, ok := eqStr[e]; ok {
		return s
	}
	return "UNKNOWN"
}

// And combines two verdicts. Unknown is the identity element, and any
// conflict between Equal and Different resolves to Different.
func (e Equality) And(other Equality) Equality {
	switch {
	case e == Unknown:
		return other
	case other == Unknown:
		return e
	case e == Equal && other == Equal:
		return Equal
	default:
		return Different
	}
}

// All combines any number of verdicts with And.
func All(es ...Equality) Equality {
	res := Unknown
	for _, e := range es {
		res = res.And(e)
	}
	return res
}
