package service_test

import (
	"context"
	"testing"

	"buildpos/internal/model"
	"buildpos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCategoryService(t *testing.T, e *env, username string) *service.CategoryService {
	t.Helper()
	store, co, c := e.terminal(t, username)
	return service.NewCategoryService(co, store, nil, c)
}

func TestCategoryCreateResolvesIcon(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "admin")
	ctx := context.Background()

	cat, err := svc.Create(ctx, &e.admin, "Bo'yoqlar", "paints and varnish", "paint")
	require.NoError(t, err)
	assert.Equal(t, "paint", cat.Icon)

	// Unknown icon names land on the package icon instead of breaking
	// terminal rendering.
	cat, err = svc.Create(ctx, &e.admin, "Boshqa", "", "sparkles")
	require.NoError(t, err)
	assert.Equal(t, "package", cat.Icon)
}

func TestCategoryCreateRejectsDuplicateName(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "admin")
	ctx := context.Background()

	_, err := svc.Create(ctx, &e.admin, "G'isht", "", "brick")
	require.NoError(t, err)

	_, err = svc.Create(ctx, &e.admin, "G'isht", "", "brick")
	assert.True(t, service.IsValidation(err), "got %v", err)
}

func TestCategoryCreateRequiresPermission(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "kassir")

	_, err := svc.Create(context.Background(), &e.cashier, "Asboblar", "", "tool")
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestCategoryDeleteRefusedWhileInUse(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "admin")
	ctx := context.Background()

	cat, err := svc.Create(ctx, &e.admin, "Quvurlar", "", "pipe")
	require.NoError(t, err)

	e.seedTable(t, model.TableProducts, []model.Product{
		{ID: "p1", Name: "Pipe 20mm", CategoryID: cat.ID, Unit: model.UnitMeter, Stock: 5},
	})

	err = svc.Delete(ctx, &e.admin, cat.ID)
	assert.True(t, service.IsValidation(err), "got %v", err)

	// Still there.
	cats := readTable[model.Category](t, e, model.TableCategories)
	require.Len(t, cats, 1)

	// Once the product is gone the delete goes through.
	e.seedTable(t, model.TableProducts, []model.Product{})
	require.NoError(t, svc.Delete(ctx, &e.admin, cat.ID))
	assert.Empty(t, readTable[model.Category](t, e, model.TableCategories))
}

func TestCategoryUpdate(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "admin")
	ctx := context.Background()

	cat, err := svc.Create(ctx, &e.admin, "Yog'och", "", "wood")
	require.NoError(t, err)

	updated := *cat
	updated.Description = "boards and beams"
	updated.Icon = "no-such-icon"
	require.NoError(t, svc.Update(ctx, &e.admin, updated))

	cats := readTable[model.Category](t, e, model.TableCategories)
	require.Len(t, cats, 1)
	assert.Equal(t, "boards and beams", cats[0].Description)
	assert.Equal(t, "package", cats[0].Icon)
}

func TestCategoryDeleteUnknown(t *testing.T) {
	e := newEnv(t)
	svc := newCategoryService(t, e, "admin")

	err := svc.Delete(context.Background(), &e.admin, "nope")
	assert.True(t, service.IsValidation(err), "got %v", err)
}
