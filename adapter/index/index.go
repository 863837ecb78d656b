// Package index contains the primary key index used by the in-memory store.
// Documents are kept in an AVL tree ordered by _id.
package index

import (
	"errors"
	"fmt"
	"iter"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"
	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Index is a unique index on _id. It is not safe for concurrent use.
type Index struct {
	tree        bst.BST[any, domain.Document]
	bstComparer bst.Comparer[any, domain.Document]
}

// NewIndex returns an empty Index. A nil comparer uses the default one.
func NewIndex(c domain.Comparer) *Index {
	if c == nil {
		c = comparer.NewComparer()
	}
	bc := NewBSTComparer(c)
	return &Index{
		tree:        avl.NewBST(true, 8, bc),
		bstComparer: bc,
	}
}

// Reset removes every document.
func (i *Index) Reset() {
	i.tree = avl.NewBST(true, 8, i.bstComparer)
}

// Insert adds docs by _id. Either every document is inserted or none is.
func (i *Index) Insert(docs ...domain.Document) error {
	inserted := make([]domain.Document, 0, len(docs))
	var err error
	for _, d := range docs {
		if err = i.tree.Insert(d.ID(), d); err != nil {
			if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
				err = fmt.Errorf("%w: %w", domain.ErrConstraintViolated, err)
			}
			break
		}
		inserted = append(inserted, d)
	}
	if err == nil {
		return nil
	}

	errs := []error{err}
	for _, d := range inserted {
		if rbErr := i.tree.Delete(d.ID(), &d); rbErr != nil {
			errs = append(errs, rbErr)
		}
	}
	return errors.Join(errs...)
}

// Remove deletes docs from the index.
func (i *Index) Remove(docs ...domain.Document) error {
	errs := make([]error, 0, len(docs))
	for _, d := range docs {
		if err := i.tree.Delete(d.ID(), &d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Replace swaps old for updated, which must share its _id.
func (i *Index) Replace(old, updated domain.Document) error {
	if err := i.tree.Delete(old.ID(), &old); err != nil {
		return err
	}
	if err := i.tree.Insert(updated.ID(), updated); err != nil {
		return errors.Join(err, i.tree.Insert(old.ID(), old))
	}
	return nil
}

// Get returns the document stored under id.
func (i *Index) Get(id any) (domain.Document, bool, error) {
	found, err := i.tree.Search(id)
	if err != nil {
		return nil, false, err
	}
	if found == nil || len(found.Values()) == 0 {
		return nil, false, nil
	}
	return found.Values()[0], true, nil
}

// All returns every document ordered by _id.
func (i *Index) All() iter.Seq[domain.Document] {
	return i.tree.GetAll()
}

// Len returns the number of stored documents.
func (i *Index) Len() int {
	return i.tree.GetNumberOfKeys()
}
