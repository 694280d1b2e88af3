package service

import (
	"context"
	"fmt"
	"sort"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"

	"github.com/go-playground/validator/v10"
)

// BadgeSource 徽章定义的读取接口
type BadgeSource interface {
	FindAll(ctx context.Context) ([]model.Badge, error)
}

// BadgeCatalog 启动时加载一次的徽章目录，加载后只读，可在请求间共享
type BadgeCatalog struct {
	defs []BadgeDefinition
	byID map[uint]int
}

var badgeValidator = validator.New()

// LoadBadgeCatalog 读取并校验全部徽章定义，任意一行非法即失败
func LoadBadgeCatalog(ctx context.Context, source BadgeSource) (*BadgeCatalog, error) {
	rows, err := source.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return NewBadgeCatalog(rows)
}

func NewBadgeCatalog(rows []model.Badge) (*BadgeCatalog, error) {
	if len(rows) == 0 {
		return nil, util.ErrCatalogEmpty
	}

	c := &BadgeCatalog{
		defs: make([]BadgeDefinition, 0, len(rows)),
		byID: make(map[uint]int, len(rows)),
	}

	seen := make(map[uint]struct{}, len(rows))
	for i := range rows {
		row := &rows[i]
		if err := badgeValidator.Struct(row); err != nil {
			return nil, fmt.Errorf("badge %d: %w", row.ID, err)
		}
		if _, dup := seen[row.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %d", row.ID)
		}
		seen[row.ID] = struct{}{}

		criterion, err := CriterionFromModel(row)
		if err != nil {
			return nil, err
		}

		c.defs = append(c.defs, BadgeDefinition{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			ImageURL:    row.ImageURL,
			Category:    row.Category,
			Criterion:   criterion,
		})
	}

	sort.Slice(c.defs, func(i, j int) bool { return c.defs[i].ID < c.defs[j].ID })
	for i, d := range c.defs {
		c.byID[d.ID] = i
	}
	return c, nil
}

// All 按 ID 升序返回全部定义的副本
func (c *BadgeCatalog) All() []BadgeDefinition {
	return append([]BadgeDefinition(nil), c.defs...)
}

func (c *BadgeCatalog) Get(id uint) (BadgeDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return BadgeDefinition{}, false
	}
	return c.defs[i], true
}

func (c *BadgeCatalog) Len() int {
	return len(c.defs)
}

// ByKind 返回某一类条件的全部徽章
func (c *BadgeCatalog) ByKind(kind string) []BadgeDefinition {
	var out []BadgeDefinition
	for _, d := range c.defs {
		if d.Criterion.Kind() == kind {
			out = append(out, d)
		}
	}
	return out
}
