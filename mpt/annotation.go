package mpt

// SizeAnnotation counts the number of leaves under a node. It is the
// simplest annotation monoid and is used wherever a trie only needs to
// answer "how many entries does this subtree hold".
type SizeAnnotation uint64

// Empty implements Annotation.
func (SizeAnnotation) Empty() SizeAnnotation { return 0 }

// Append implements Annotation.
func (a SizeAnnotation) Append(other SizeAnnotation) SizeAnnotation { return a + other }

// ConstSize returns a FromValueFunc producing a constant SizeAnnotation
// of 1 per leaf, for tries that only need to count entries.
func ConstSize[V any]() FromValueFunc[V, SizeAnnotation] {
	return func(V) SizeAnnotation { return 1 }
}

// PairAnnotation combines two independent annotations into one monoid,
// letting a single trie answer queries that would otherwise need two
// parallel tries over the same keys.
type PairAnnotation[A Annotation[A], B Annotation[B]] struct {
	First  A
	Second B
}

// Empty implements Annotation.
func (p PairAnnotation[A, B]) Empty() PairAnnotation[A, B] {
	var a A
	var b B
	return PairAnnotation[A, B]{First: a.Empty(), Second: b.Empty()}
}

// Append implements Annotation.
func (p PairAnnotation[A, B]) Append(other PairAnnotation[A, B]) PairAnnotation[A, B] {
	return PairAnnotation[A, B]{First: p.First.Append(other.First), Second: p.Second.Append(other.Second)}
}
