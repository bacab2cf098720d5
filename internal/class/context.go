package class

import (
	"fmt"

	"github.com/roach88/classkit/internal/object"
)

// bindScope installs on identity, under key, a fresh view whose prototype
// is storage and whose "public" member is identity. A view already bound
// under the same key is replaced; views under other keys are untouched.
func bindScope(identity *object.Object, key *object.Symbol, storage *object.Object) error {
	view := object.New(storage)
	_ = view.Set(object.Name(object.PublicName), identity)
	if err := identity.Set(object.Sym(key), view); err != nil {
		return fmt.Errorf("bind scope %s: %w", key, err)
	}
	return nil
}
