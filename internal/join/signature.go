package join

import (
	"encoding/binary"

	"github.com/roach88/tvs/internal/ir"
	"github.com/roach88/tvs/internal/tvs"
)

// NameSignature hashes the multiset of canonical names of s. Structures
// that can be related by a canonical-name bijection share it.
func NameSignature(s *tvs.Structure) uint64 {
	return ir.Digest64(ir.DomainSignature, appendNames(nil, s))
}

// Signature hashes the canonical-name multiset together with per-predicate
// satisfaction counts and nullary values. Isomorphic structures share it;
// equal signatures do not imply isomorphism.
func Signature(s *tvs.Structure) uint64 {
	buf := appendNames(nil, s)
	buf = append(buf, '|')
	for _, p := range s.Vocabulary().Predicates() {
		if !s.InVocabulary(p) {
			continue
		}
		trues, unknowns := s.Count(p)
		buf = binary.AppendUvarint(buf, uint64(p.ID()))
		buf = binary.AppendUvarint(buf, uint64(trues))
		buf = binary.AppendUvarint(buf, uint64(unknowns))
		if p.Arity() == 0 {
			buf = append(buf, byte(s.Eval0(p)))
		}
	}
	return ir.Digest64(ir.DomainSignature, buf)
}

func appendNames(buf []byte, s *tvs.Structure) []byte {
	names := s.CanonicMultiset()
	buf = binary.AppendUvarint(buf, uint64(len(names)))
	for _, c := range names {
		key := c.Key()
		buf = binary.AppendUvarint(buf, uint64(len(key)))
		buf = append(buf, key...)
	}
	return buf
}
