package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/praccloud/ledger_backend/config"
	"github.com/praccloud/ledger_backend/utils"
)

// The chart of accounts is a strict 4-level classification tree:
// MainGroup > ElementGroup > SubElementGroup > DetailedGroup, with leaf
// accounts hanging off detailed groups. Codes are composite: each level
// appends a short slug plus a zero-padded per-parent sequence to its
// parent's code.

type MainGroup struct {
	ID         int       `gorm:"primary_key" json:"id"`
	TenantId   string    `gorm:"index;not null" json:"tenant_id"`
	Code       string    `gorm:"size:50;not null" json:"code"`
	Name       GroupName `gorm:"size:50;not null;index" json:"name" binding:"required"`
	CustomName string    `gorm:"size:100" json:"custom_name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ElementGroup struct {
	ID          int       `gorm:"primary_key" json:"id"`
	TenantId    string    `gorm:"index;not null" json:"tenant_id"`
	MainGroupId int       `gorm:"index;not null" json:"main_group_id" binding:"required"`
	Code        string    `gorm:"size:50;not null" json:"code"`
	Name        GroupName `gorm:"size:50;not null;index" json:"name" binding:"required"`
	CustomName  string    `gorm:"size:100" json:"custom_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SubElementGroup struct {
	ID             int       `gorm:"primary_key" json:"id"`
	TenantId       string    `gorm:"index;not null" json:"tenant_id"`
	ElementGroupId int       `gorm:"index;not null" json:"element_group_id" binding:"required"`
	Code           string    `gorm:"size:50;not null" json:"code"`
	Name           GroupName `gorm:"size:50;not null;index" json:"name" binding:"required"`
	CustomName     string    `gorm:"size:100" json:"custom_name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type DetailedGroup struct {
	ID                int       `gorm:"primary_key" json:"id"`
	TenantId          string    `gorm:"index;not null" json:"tenant_id"`
	SubElementGroupId int       `gorm:"index;not null" json:"sub_element_group_id" binding:"required"`
	Code              string    `gorm:"size:50;not null" json:"code"`
	Name              GroupName `gorm:"size:50;not null;index" json:"name" binding:"required"`
	CustomName        string    `gorm:"size:100" json:"custom_name"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewChartGroup struct {
	ParentId   int    `json:"parent_id"`
	Name       string `json:"name" binding:"required"`
	CustomName string `json:"custom_name"`
}

// groupSlug derives the short code fragment for a group name. Custom groups
// slug from their free-form label.
func groupSlug(name GroupName, customName string) string {
	src := string(name)
	if name == GroupNameCustom && customName != "" {
		src = customName
	}
	src = strings.ToUpper(strings.ReplaceAll(src, " ", ""))
	if len(src) > 2 {
		src = src[:2]
	}
	return src
}

// nextGroupCode builds parentCode + slug + zero-padded sequence, unique
// within the parent.
func nextGroupCode[T any](ctx context.Context, tenantId string, parentCode string, slug string, parentCond string, parentArgs ...interface{}) (string, error) {
	var model T
	db := config.GetDB()
	var count int64
	dbCtx := db.WithContext(ctx).Model(&model).Where("tenant_id = ?", tenantId)
	if parentCond != "" {
		dbCtx = dbCtx.Where(parentCond, parentArgs...)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return "", err
	}
	seq := count + 1
	for {
		code := fmt.Sprintf("%s%s%02d", parentCode, slug, seq)
		dup, err := utils.ResourceCountWhere[T](ctx, tenantId, "code = ?", code)
		if err != nil {
			return "", err
		}
		if dup == 0 {
			return code, nil
		}
		seq++
	}
}

func resolveGroupName(input *NewChartGroup) (GroupName, string, error) {
	name, ok := CanonicalGroupName(input.Name)
	if !ok {
		return "", "", errors.New("invalid group name: " + input.Name)
	}
	if name == GroupNameCustom && input.CustomName == "" {
		return "", "", errors.New("custom group requires a custom name")
	}
	if name != GroupNameCustom {
		return name, "", nil
	}
	return name, input.CustomName, nil
}

func CreateMainGroup(ctx context.Context, input *NewChartGroup) (*MainGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	name, customName, err := resolveGroupName(input)
	if err != nil {
		return nil, err
	}
	code, err := nextGroupCode[MainGroup](ctx, tenantId, "", groupSlug(name, customName), "")
	if err != nil {
		return nil, err
	}
	group := MainGroup{
		TenantId:   tenantId,
		Code:       code,
		Name:       name,
		CustomName: customName,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func CreateElementGroup(ctx context.Context, input *NewChartGroup) (*ElementGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	name, customName, err := resolveGroupName(input)
	if err != nil {
		return nil, err
	}
	parent, err := utils.FetchModel[MainGroup](ctx, tenantId, input.ParentId)
	if err != nil {
		return nil, errors.New("main group not found")
	}
	code, err := nextGroupCode[ElementGroup](ctx, tenantId, parent.Code, groupSlug(name, customName), "main_group_id = ?", parent.ID)
	if err != nil {
		return nil, err
	}
	group := ElementGroup{
		TenantId:    tenantId,
		MainGroupId: parent.ID,
		Code:        code,
		Name:        name,
		CustomName:  customName,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func CreateSubElementGroup(ctx context.Context, input *NewChartGroup) (*SubElementGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	name, customName, err := resolveGroupName(input)
	if err != nil {
		return nil, err
	}
	parent, err := utils.FetchModel[ElementGroup](ctx, tenantId, input.ParentId)
	if err != nil {
		return nil, errors.New("element group not found")
	}
	code, err := nextGroupCode[SubElementGroup](ctx, tenantId, parent.Code, groupSlug(name, customName), "element_group_id = ?", parent.ID)
	if err != nil {
		return nil, err
	}
	group := SubElementGroup{
		TenantId:       tenantId,
		ElementGroupId: parent.ID,
		Code:           code,
		Name:           name,
		CustomName:     customName,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func CreateDetailedGroup(ctx context.Context, input *NewChartGroup) (*DetailedGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	name, customName, err := resolveGroupName(input)
	if err != nil {
		return nil, err
	}
	parent, err := utils.FetchModel[SubElementGroup](ctx, tenantId, input.ParentId)
	if err != nil {
		return nil, errors.New("sub element group not found")
	}
	code, err := nextGroupCode[DetailedGroup](ctx, tenantId, parent.Code, groupSlug(name, customName), "sub_element_group_id = ?", parent.ID)
	if err != nil {
		return nil, err
	}
	group := DetailedGroup{
		TenantId:          tenantId,
		SubElementGroupId: parent.ID,
		Code:              code,
		Name:              name,
		CustomName:        customName,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// findGroupByName implements the lookup fallback chain used by bulk imports:
//  1. exact match (canonical name, or custom entry whose label matches)
//  2. declared synonym resolution
//  3. any custom entry under the parent
//  4. the first available sibling
//
// The order is part of the contract; imports rely on it to survive naming
// drift.
func findGroupByName[T any](ctx context.Context, tenantId string, raw string, parentCond string, parentArgs ...interface{}) (*T, error) {
	db := config.GetDB()

	find := func(cond string, args ...interface{}) (*T, error) {
		var result T
		dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
		if parentCond != "" {
			dbCtx = dbCtx.Where(parentCond, parentArgs...)
		}
		if cond != "" {
			dbCtx = dbCtx.Where(cond, args...)
		}
		if err := dbCtx.Order("id").First(&result).Error; err != nil {
			return nil, err
		}
		return &result, nil
	}

	// exact
	if g, err := find("name = ? OR (name = ? AND custom_name = ?)", raw, GroupNameCustom, raw); err == nil {
		return g, nil
	}
	// synonyms
	if canonical, ok := CanonicalGroupName(raw); ok {
		if g, err := find("name = ?", canonical); err == nil {
			return g, nil
		}
	}
	// any custom entry under the parent
	if g, err := find("name = ?", GroupNameCustom); err == nil {
		return g, nil
	}
	// first available sibling
	if g, err := find(""); err == nil {
		return g, nil
	}
	return nil, utils.ErrorRecordNotFound
}

func FindMainGroupByName(ctx context.Context, name string) (*MainGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return findGroupByName[MainGroup](ctx, tenantId, name, "")
}

func FindElementGroupByName(ctx context.Context, name string, mainGroupId int) (*ElementGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return findGroupByName[ElementGroup](ctx, tenantId, name, "main_group_id = ?", mainGroupId)
}

func FindSubElementGroupByName(ctx context.Context, name string, elementGroupId int) (*SubElementGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return findGroupByName[SubElementGroup](ctx, tenantId, name, "element_group_id = ?", elementGroupId)
}

func FindDetailedGroupByName(ctx context.Context, name string, subElementGroupId int) (*DetailedGroup, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	return findGroupByName[DetailedGroup](ctx, tenantId, name, "sub_element_group_id = ?", subElementGroupId)
}

// deleteGroup is a hard delete scoped to (id, tenantId). A group that still
// has descendants cannot be removed; the caller gets the blocking count.
func deleteGroup[T any, Child any](ctx context.Context, id int, resource string, childCond string) (*T, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	result, err := utils.FetchModel[T](ctx, tenantId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[Child](ctx, tenantId, childCond, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewDependencyError(resource, count)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func DeleteMainGroup(ctx context.Context, id int) (*MainGroup, error) {
	return deleteGroup[MainGroup, ElementGroup](ctx, id, "main group", "main_group_id = ?")
}

func DeleteElementGroup(ctx context.Context, id int) (*ElementGroup, error) {
	return deleteGroup[ElementGroup, SubElementGroup](ctx, id, "element group", "element_group_id = ?")
}

func DeleteSubElementGroup(ctx context.Context, id int) (*SubElementGroup, error) {
	return deleteGroup[SubElementGroup, DetailedGroup](ctx, id, "sub element group", "sub_element_group_id = ?")
}

func DeleteDetailedGroup(ctx context.Context, id int) (*DetailedGroup, error) {
	return deleteGroup[DetailedGroup, Account](ctx, id, "detailed group", "detailed_group_id = ?")
}

/* hierarchy view */

type HierarchyAccountNode struct {
	ID          int         `json:"id"`
	AccountCode string      `json:"account_code"`
	Name        string      `json:"name"`
	AccountType AccountType `json:"account_type"`
	IsActive    bool        `json:"is_active"`
}

type HierarchyDetailedNode struct {
	ID         int                    `json:"id"`
	Code       string                 `json:"code"`
	Name       GroupName              `json:"name"`
	CustomName string                 `json:"custom_name,omitempty"`
	Accounts   []HierarchyAccountNode `json:"accounts"`
}

type HierarchySubElementNode struct {
	ID             int                     `json:"id"`
	Code           string                  `json:"code"`
	Name           GroupName               `json:"name"`
	CustomName     string                  `json:"custom_name,omitempty"`
	DetailedGroups []HierarchyDetailedNode `json:"detailed_groups"`
}

type HierarchyElementNode struct {
	ID               int                       `json:"id"`
	Code             string                    `json:"code"`
	Name             GroupName                 `json:"name"`
	CustomName       string                    `json:"custom_name,omitempty"`
	SubElementGroups []HierarchySubElementNode `json:"sub_element_groups"`
}

type HierarchyMainNode struct {
	ID            int                    `json:"id"`
	Code          string                 `json:"code"`
	Name          GroupName              `json:"name"`
	CustomName    string                 `json:"custom_name,omitempty"`
	ElementGroups []HierarchyElementNode `json:"element_groups"`
}

// GetHierarchy assembles the full 4-level tree with leaf accounts for the
// admin UI.
func GetHierarchy(ctx context.Context) ([]HierarchyMainNode, error) {
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return nil, errors.New("tenant id is required")
	}
	mains, err := utils.FetchAllModels[MainGroup](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	elements, err := utils.FetchAllModels[ElementGroup](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	subElements, err := utils.FetchAllModels[SubElementGroup](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	detailed, err := utils.FetchAllModels[DetailedGroup](ctx, tenantId)
	if err != nil {
		return nil, err
	}
	accounts, err := utils.FetchAllModels[Account](ctx, tenantId)
	if err != nil {
		return nil, err
	}

	accountsByDetailed := make(map[int][]HierarchyAccountNode)
	for _, a := range accounts {
		accountsByDetailed[a.DetailedGroupId] = append(accountsByDetailed[a.DetailedGroupId], HierarchyAccountNode{
			ID:          a.ID,
			AccountCode: a.AccountCode,
			Name:        a.Name,
			AccountType: a.AccountType,
			IsActive:    a.IsActive != nil && *a.IsActive,
		})
	}
	detailedBySub := make(map[int][]HierarchyDetailedNode)
	for _, d := range detailed {
		detailedBySub[d.SubElementGroupId] = append(detailedBySub[d.SubElementGroupId], HierarchyDetailedNode{
			ID:         d.ID,
			Code:       d.Code,
			Name:       d.Name,
			CustomName: d.CustomName,
			Accounts:   accountsByDetailed[d.ID],
		})
	}
	subByElement := make(map[int][]HierarchySubElementNode)
	for _, s := range subElements {
		subByElement[s.ElementGroupId] = append(subByElement[s.ElementGroupId], HierarchySubElementNode{
			ID:             s.ID,
			Code:           s.Code,
			Name:           s.Name,
			CustomName:     s.CustomName,
			DetailedGroups: detailedBySub[s.ID],
		})
	}
	elementsByMain := make(map[int][]HierarchyElementNode)
	for _, e := range elements {
		elementsByMain[e.MainGroupId] = append(elementsByMain[e.MainGroupId], HierarchyElementNode{
			ID:               e.ID,
			Code:             e.Code,
			Name:             e.Name,
			CustomName:       e.CustomName,
			SubElementGroups: subByElement[e.ID],
		})
	}
	tree := make([]HierarchyMainNode, 0, len(mains))
	for _, m := range mains {
		tree = append(tree, HierarchyMainNode{
			ID:            m.ID,
			Code:          m.Code,
			Name:          m.Name,
			CustomName:    m.CustomName,
			ElementGroups: elementsByMain[m.ID],
		})
	}
	return tree, nil
}
