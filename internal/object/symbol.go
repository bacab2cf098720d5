package object

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// symbolSeq is the only process-wide state in the package. It only grows;
// symbols are never freed or reused.
var symbolSeq atomic.Int64

// Symbol is an opaque key used to namespace storage.
//
// Two symbols are equal only if they are the same pointer. The sequence
// number makes distinctness certain; the UUID gives the symbol a stable
// printable token for logs and snapshots.
type Symbol struct {
	seq   int64
	label string
	token uuid.UUID
}

// NewSymbol allocates a symbol distinct from every other symbol ever
// allocated in this process, regardless of label.
func NewSymbol(label string) *Symbol {
	return &Symbol{
		seq:   symbolSeq.Add(1),
		label: label,
		token: uuid.New(),
	}
}

// Label returns the descriptive label given at allocation.
func (s *Symbol) Label() string {
	return s.label
}

// Seq returns the allocation sequence number.
func (s *Symbol) Seq() int64 {
	return s.seq
}

// Token returns the symbol's random token.
func (s *Symbol) Token() string {
	return s.token.String()
}

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol(%s)#%d", s.label, s.seq)
}
