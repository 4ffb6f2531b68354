package service

import (
	"context"
	"encoding/json"

	"buildpos/internal/cache"
	"buildpos/internal/client"
	"buildpos/internal/model"

	"github.com/google/uuid"
)

// CategoryService owns category mutations. Deleting a category that still
// has products is refused — the catalog must not accumulate orphaned
// category references.
type CategoryService struct {
	co    *client.Coordinator
	store *client.Store
	sync  *CatalogSyncer
	cache *cache.Cache
}

func NewCategoryService(co *client.Coordinator, store *client.Store, syncer *CatalogSyncer, c *cache.Cache) *CategoryService {
	return &CategoryService{co: co, store: store, sync: syncer, cache: c}
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	env, err := s.store.Get(ctx, model.TableCategories)
	if err != nil {
		if entry, ok := s.cache.Read(model.TableCategories); ok {
			var categories []model.Category
			if jsonErr := json.Unmarshal(entry.Items, &categories); jsonErr == nil {
				return categories, nil
			}
		}
		return nil, err
	}
	s.cache.Write(model.TableCategories, env.Version, env.Items)
	var categories []model.Category
	if err := json.Unmarshal(env.Items, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Create appends a category. The icon name is resolved against the closed
// icon set, falling back to the package icon.
func (s *CategoryService) Create(ctx context.Context, actor *model.User, name, description, icon string) (*model.Category, error) {
	if !actor.HasPermission(model.PermCategoriesManage) {
		return nil, ErrPermissionDenied
	}
	if name == "" {
		return nil, validationf("category name is required")
	}

	cat := model.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Icon:        string(model.ResolveIcon(icon)),
	}

	res, err := client.Mutate(ctx, s.co, model.TableCategories, func(categories []model.Category) ([]model.Category, error) {
		for _, existing := range categories {
			if existing.Name == name {
				return nil, validationf("category %q already exists", name)
			}
		}
		return append(categories, cat), nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, res)
	return &cat, nil
}

// Update replaces an existing category.
func (s *CategoryService) Update(ctx context.Context, actor *model.User, cat model.Category) error {
	if !actor.HasPermission(model.PermCategoriesManage) {
		return ErrPermissionDenied
	}
	if cat.Name == "" {
		return validationf("category name is required")
	}
	cat.Icon = string(model.ResolveIcon(cat.Icon))

	res, err := client.Mutate(ctx, s.co, model.TableCategories, func(categories []model.Category) ([]model.Category, error) {
		for i := range categories {
			if categories[i].ID == cat.ID {
				categories[i] = cat
				return categories, nil
			}
		}
		return nil, validationf("category %s not found", cat.ID)
	})
	if err != nil {
		return err
	}

	s.afterChange(ctx, res)
	return nil
}

// Delete removes a category, refusing while any product still references
// it. The reference check runs inside the retry cycle against a fresh
// products read, so a conflicting product move re-checks on retry.
func (s *CategoryService) Delete(ctx context.Context, actor *model.User, id string) error {
	if !actor.HasPermission(model.PermCategoriesManage) {
		return ErrPermissionDenied
	}

	res, err := client.Mutate(ctx, s.co, model.TableCategories, func(categories []model.Category) ([]model.Category, error) {
		prodEnv, err := s.store.Get(ctx, model.TableProducts)
		if err != nil {
			return nil, err
		}
		var products []model.Product
		if err := json.Unmarshal(prodEnv.Items, &products); err != nil {
			return nil, err
		}
		inUse := 0
		for _, p := range products {
			if p.CategoryID == id {
				inUse++
			}
		}
		if inUse > 0 {
			return nil, validationf("category still has %d products, reassign them first", inUse)
		}

		next := make([]model.Category, 0, len(categories))
		found := false
		for _, cat := range categories {
			if cat.ID == id {
				found = true
				continue
			}
			next = append(next, cat)
		}
		if !found {
			return nil, validationf("category %s not found", id)
		}
		return next, nil
	})
	if err != nil {
		return err
	}

	s.afterChange(ctx, res)
	return nil
}

func (s *CategoryService) afterChange(ctx context.Context, res *client.Result[model.Category]) {
	raw, err := json.Marshal(res.Items)
	if err != nil {
		return
	}
	s.cache.Write(model.TableCategories, res.Version, raw)
	if s.sync != nil {
		s.sync.BroadcastCategories(ctx, raw, res.Version)
	}
}
