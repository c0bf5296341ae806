// Package service provides the business logic layer of the tracker: the
// category hierarchy, the optimistic record stores, budget matching, and the
// chart aggregation helpers.
package service

import (
	"context"
	"sort"
	"sync"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// CategoryStore owns the category forest: a flat list with parent
// references. Creates and deletes go through the remote ledger; renames,
// recolors, reparenting, and reordering are local concerns.
type CategoryStore struct {
	mu     sync.RWMutex
	cats   map[string]domain.Category
	nextIx int

	ledger port.RemoteLedger
	logger *zap.Logger
}

// NewCategoryStore creates an empty category store.
func NewCategoryStore(ledger port.RemoteLedger, logger *zap.Logger) *CategoryStore {
	return &CategoryStore{
		cats:   make(map[string]domain.Category),
		ledger: ledger,
		logger: logger,
	}
}

// Hydrate replaces local state with the remote category list.
func (s *CategoryStore) Hydrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "CategoryStore.Hydrate")
	defer span.End()

	cats, err := s.ledger.ListCategories(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats = make(map[string]domain.Category, len(cats))
	s.nextIx = 0
	for _, c := range cats {
		if c.SortIndex >= s.nextIx {
			s.nextIx = c.SortIndex + 1
		}
		s.cats[c.ID] = c
	}

	s.logger.Info("categories hydrated", zap.Int("count", len(cats)))
	return nil
}

// Create adds a category. The category is inserted locally under a
// temporary id before the remote call so the UI can render immediately; on
// confirmation the temporary id is swapped for the canonical one, on failure
// the insert is removed.
func (s *CategoryStore) Create(ctx context.Context, name, parentID, color string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "CategoryStore.Create")
	defer span.End()

	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}

	s.mu.Lock()
	if parentID != "" {
		if _, ok := s.cats[parentID]; !ok {
			s.mu.Unlock()
			return nil, &domain.ErrInvalidReference{Field: "parent_id", Message: "parent category does not exist"}
		}
	}
	tempID := "tmp-" + uuid.NewString()
	cat := domain.Category{
		ID:        tempID,
		Name:      name,
		ParentID:  parentID,
		Color:     color,
		SortIndex: s.nextIx,
	}
	s.nextIx++
	s.cats[tempID] = cat
	s.mu.Unlock()

	created, err := s.ledger.CreateCategory(ctx, cat)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		delete(s.cats, tempID)
		s.logger.Error("category create failed, optimistic insert removed",
			zap.String("name", name), zap.Error(err))
		return nil, err
	}

	// Swap the temporary id for the canonical one, keeping local fields the
	// remote does not track.
	local := s.cats[tempID]
	delete(s.cats, tempID)
	canonical := *created
	canonical.SortIndex = local.SortIndex
	if canonical.Color == "" {
		canonical.Color = local.Color
	}
	s.cats[canonical.ID] = canonical

	s.logger.Info("category created",
		zap.String("category_id", canonical.ID), zap.String("name", canonical.Name))
	return &canonical, nil
}

// Rename updates a category's name. The name must be non-empty.
func (s *CategoryStore) Rename(id, name string) error {
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.cats[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}
	cat.Name = name
	s.cats[id] = cat
	return nil
}

// Recolor updates a category's display color.
func (s *CategoryStore) Recolor(id, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.cats[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}
	cat.Color = color
	s.cats[id] = cat
	return nil
}

// Reparent moves a category under a new parent, or to the root when
// newParentID is empty. Self-parenting and moves under a descendant are
// rejected, leaving the hierarchy unchanged.
func (s *CategoryStore) Reparent(id, newParentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.cats[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}

	if newParentID != "" {
		if newParentID == id {
			return &domain.ErrInvalidReference{Field: "parent_id", Message: "category cannot be its own parent"}
		}
		if _, ok := s.cats[newParentID]; !ok {
			return &domain.ErrInvalidReference{Field: "parent_id", Message: "parent category does not exist"}
		}
		// Walk up from the new parent; hitting id means the new parent is a
		// descendant of id and the move would create a cycle.
		seen := map[string]bool{}
		for cur := newParentID; cur != "" && !seen[cur]; {
			seen[cur] = true
			anc, ok := s.cats[cur]
			if !ok {
				break
			}
			if anc.ParentID == id {
				return &domain.ErrInvalidReference{Field: "parent_id", Message: "move would create a cycle"}
			}
			cur = anc.ParentID
		}
	}

	cat.ParentID = newParentID
	s.cats[id] = cat
	return nil
}

// Delete removes a category. Children are not cascade-deleted; they become
// orphans and are treated as roots by Tree. Records referencing the id keep
// a dangling reference that renders as Uncategorized.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "CategoryStore.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("category.id", id))

	s.mu.RLock()
	_, ok := s.cats[id]
	s.mu.RUnlock()
	if !ok {
		return &domain.ErrNotFound{Resource: "category", ID: id}
	}

	if err := s.ledger.DeleteCategory(ctx, id); err != nil {
		s.logger.Error("category delete failed", zap.String("category_id", id), zap.Error(err))
		return err
	}

	s.mu.Lock()
	delete(s.cats, id)
	s.mu.Unlock()

	s.logger.Info("category deleted", zap.String("category_id", id))
	return nil
}

// Reorder reindexes the given siblings in the given order. Display-only;
// budget matching is unaffected. Unknown ids are skipped.
func (s *CategoryStore) Reorder(siblingIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range siblingIDs {
		if cat, ok := s.cats[id]; ok {
			cat.SortIndex = i
			s.cats[id] = cat
		}
	}
}

// Get returns a category by id.
func (s *CategoryStore) Get(id string) (domain.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.cats[id]
	return cat, ok
}

// List returns all categories sorted by sort index, then name.
func (s *CategoryStore) List() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.cats))
	for _, c := range s.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortIndex != out[j].SortIndex {
			return out[i].SortIndex < out[j].SortIndex
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Tree builds the category forest. Categories whose parent id does not
// resolve (orphans after a delete) appear as roots.
func (s *CategoryStore) Tree() []domain.CategoryNode {
	all := s.List()

	s.mu.RLock()
	exists := make(map[string]bool, len(s.cats))
	for id := range s.cats {
		exists[id] = true
	}
	s.mu.RUnlock()

	children := make(map[string][]domain.Category)
	var roots []domain.Category
	for _, c := range all {
		if c.ParentID == "" || !exists[c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[c.ParentID] = append(children[c.ParentID], c)
	}

	var build func(c domain.Category) domain.CategoryNode
	build = func(c domain.Category) domain.CategoryNode {
		node := domain.CategoryNode{Category: c}
		for _, child := range children[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	nodes := make([]domain.CategoryNode, 0, len(roots))
	for _, r := range roots {
		nodes = append(nodes, build(r))
	}
	return nodes
}

// NameOf resolves a category id to its display name. Empty or dangling ids
// resolve to the Uncategorized bucket.
func (s *CategoryStore) NameOf(id string) string {
	if id == "" {
		return domain.UncategorizedName
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cat, ok := s.cats[id]; ok {
		return cat.Name
	}
	return domain.UncategorizedName
}

// NamesByID returns a snapshot of the id→name mapping, for the pure
// aggregation helpers.
func (s *CategoryStore) NamesByID() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.cats))
	for id, c := range s.cats {
		out[id] = c.Name
	}
	return out
}
