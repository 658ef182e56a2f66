package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// Dense display-order maintenance shared by questions (scoped to their
// assessment) and options (scoped to their question). Every helper must run
// inside the caller's transaction so concurrent readers never observe a
// duplicate or missing slot.

// placeOrder assigns the order for a new row. With no requested slot the row
// is appended after the current maximum. A requested slot that collides with
// an existing row shifts everything at or after it up by one first.
func placeOrder(tx *gorm.DB, table, scopeColumn string, scopeID uint, requested *int) (int, error) {
	if requested == nil {
		var max *int
		err := tx.Table(table).
			Where(scopeColumn+" = ?", scopeID).
			Select("MAX(display_order)").
			Scan(&max).Error
		if err != nil {
			return 0, fmt.Errorf("max order lookup: %w", err)
		}
		if max == nil {
			return 1, nil
		}
		return *max + 1, nil
	}

	var occupied int64
	err := tx.Table(table).
		Where(scopeColumn+" = ? AND display_order = ?", scopeID, *requested).
		Count(&occupied).Error
	if err != nil {
		return 0, fmt.Errorf("order collision check: %w", err)
	}

	if occupied > 0 {
		err = tx.Table(table).
			Where(scopeColumn+" = ? AND display_order >= ?", scopeID, *requested).
			UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error
		if err != nil {
			return 0, fmt.Errorf("order shift: %w", err)
		}
	}

	return *requested, nil
}

// moveOrder re-indexes the range between an existing row's old and new slots
// so the row can take the new one. Moving up shifts [new, old) down the list;
// moving down shifts (old, new] up. O(affected range), single pass.
func moveOrder(tx *gorm.DB, table, scopeColumn string, scopeID uint, oldOrder, newOrder int) error {
	if newOrder == oldOrder {
		return nil
	}

	var err error
	if newOrder < oldOrder {
		err = tx.Table(table).
			Where(scopeColumn+" = ? AND display_order >= ? AND display_order < ?", scopeID, newOrder, oldOrder).
			UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error
	} else {
		err = tx.Table(table).
			Where(scopeColumn+" = ? AND display_order > ? AND display_order <= ?", scopeID, oldOrder, newOrder).
			UpdateColumn("display_order", gorm.Expr("display_order - 1")).Error
	}
	if err != nil {
		return fmt.Errorf("order move: %w", err)
	}

	return nil
}
