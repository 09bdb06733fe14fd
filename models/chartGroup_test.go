package models_test

import (
	"testing"

	"github.com/praccloud/ledger_backend/models"
	"github.com/praccloud/ledger_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroupHierarchyCodes(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	main, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "assets"})
	require.NoError(t, err)
	assert.Equal(t, "AS01", main.Code)
	assert.Equal(t, models.GroupNameAssets, main.Name)

	element, err := models.CreateElementGroup(ctx, &models.NewChartGroup{
		ParentId: main.ID, Name: "custom", CustomName: "Current Assets",
	})
	require.NoError(t, err)
	assert.Equal(t, "AS01CU01", element.Code)
	assert.Equal(t, "Current Assets", element.CustomName)

	sub, err := models.CreateSubElementGroup(ctx, &models.NewChartGroup{
		ParentId: element.ID, Name: "custom", CustomName: "Receivables",
	})
	require.NoError(t, err)
	assert.Equal(t, "AS01CU01RE01", sub.Code)

	detailed, err := models.CreateDetailedGroup(ctx, &models.NewChartGroup{
		ParentId: sub.ID, Name: "custom", CustomName: "Trade Receivables",
	})
	require.NoError(t, err)
	assert.Equal(t, "AS01CU01RE01TR01", detailed.Code)

	// a second element under the same main gets the next sequence
	second, err := models.CreateElementGroup(ctx, &models.NewChartGroup{
		ParentId: main.ID, Name: "custom", CustomName: "Current Stuff",
	})
	require.NoError(t, err)
	assert.Equal(t, "AS01CU02", second.Code)
}

func TestCreateGroupRejectsUnknownName(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	_, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "galaxies"})
	require.Error(t, err)

	// custom without a label is also rejected
	_, err = models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "custom"})
	require.Error(t, err)
}

func TestFindGroupByNameFallbackChain(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	assets, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "assets"})
	require.NoError(t, err)
	incomes, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "incomes"})
	require.NoError(t, err)
	misc, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "custom", CustomName: "Miscellaneous"})
	require.NoError(t, err)

	// 1. exact canonical match
	found, err := models.FindMainGroupByName(ctx, "assets")
	require.NoError(t, err)
	assert.Equal(t, assets.ID, found.ID)

	// 1. exact custom label match
	found, err = models.FindMainGroupByName(ctx, "Miscellaneous")
	require.NoError(t, err)
	assert.Equal(t, misc.ID, found.ID)

	// 2. synonym resolution: "revenue" maps to incomes
	found, err = models.FindMainGroupByName(ctx, "revenue")
	require.NoError(t, err)
	assert.Equal(t, incomes.ID, found.ID)

	// 3. no exact or synonym match falls back to the custom group
	found, err = models.FindMainGroupByName(ctx, "Completely Unknown")
	require.NoError(t, err)
	assert.Equal(t, misc.ID, found.ID)
}

func TestFindGroupByNameFirstSiblingFallback(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	// only canonical groups exist, so an unknown name lands on the first one
	first, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "liabilities"})
	require.NoError(t, err)
	_, err = models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "expenses"})
	require.NoError(t, err)

	found, err := models.FindMainGroupByName(ctx, "No Such Group")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestFindGroupByNameEmptyTenant(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	_, err := models.FindMainGroupByName(ctx, "assets")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestDeleteGroupRefusedWithChildren(t *testing.T) {
	openTestDB(t)
	ctx, _ := emptyTenantContext(t)

	main, err := models.CreateMainGroup(ctx, &models.NewChartGroup{Name: "assets"})
	require.NoError(t, err)
	element, err := models.CreateElementGroup(ctx, &models.NewChartGroup{
		ParentId: main.ID, Name: "custom", CustomName: "Current Assets",
	})
	require.NoError(t, err)

	_, err = models.DeleteMainGroup(ctx, main.ID)
	require.Error(t, err)
	assert.True(t, utils.IsDependencyError(err))

	// removing the child unblocks the parent
	_, err = models.DeleteElementGroup(ctx, element.ID)
	require.NoError(t, err)
	_, err = models.DeleteMainGroup(ctx, main.ID)
	require.NoError(t, err)
}

func TestGroupsAreTenantScoped(t *testing.T) {
	openTestDB(t)
	ctxA, _ := emptyTenantContext(t)
	ctxB, _ := emptyTenantContext(t)

	main, err := models.CreateMainGroup(ctxA, &models.NewChartGroup{Name: "assets"})
	require.NoError(t, err)

	// another tenant cannot see or delete it
	_, err = models.FindMainGroupByName(ctxB, "assets")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
	_, err = models.DeleteMainGroup(ctxB, main.ID)
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestGetHierarchy(t *testing.T) {
	openTestDB(t)
	ctx, _ := newTenantContext(t)

	tree, err := models.GetHierarchy(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 5)

	var leafCount int
	for _, m := range tree {
		for _, e := range m.ElementGroups {
			for _, s := range e.SubElementGroups {
				for _, d := range s.DetailedGroups {
					leafCount += len(d.Accounts)
				}
			}
		}
	}
	assert.Equal(t, 8, leafCount)
}
