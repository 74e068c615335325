package models

import (
	"time"

	"gorm.io/datatypes"
)

// Worksheet is one named tab of the shared tabular store.
type Worksheet struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(120);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Worksheet) TableName() string {
	return "worksheets"
}

// WorksheetRow holds one sheet row. RowNumber is 1-based and row 1 is the
// header, matching spreadsheet addressing.
type WorksheetRow struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement"`
	WorksheetID uint64         `gorm:"not null;index:idx_worksheet_rows_position,priority:1"`
	RowNumber   int            `gorm:"not null;index:idx_worksheet_rows_position,priority:2"`
	Cells       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WorksheetRow) TableName() string {
	return "worksheet_rows"
}
