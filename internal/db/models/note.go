package models

import (
	"time"

	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Note is the one journal entry kept per calendar day.
type Note struct {
	ID           uint                 `json:"-" gorm:"primaryKey"`
	DateKey      string               `json:"date_key" gorm:"uniqueIndex;size:10"`
	Name         string               `json:"name"`
	LocationName nulltype.NullString  `json:"location_name"`
	Date         time.Time            `json:"date"`
	Text         string               `json:"note"`
	Latitude     nulltype.NullFloat64 `json:"latitude"`
	Longitude    nulltype.NullFloat64 `json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n Note) TableName() string {
	return "notes"
}

func FindNoteByDateKey(db *gorm.DB, dateKey string) (Note, error) {
	var note Note
	err := db.Where(&Note{DateKey: dateKey}).First(&note).Error
	return note, err
}

// UpsertNote replaces the note stored under note.DateKey.
func UpsertNote(db *gorm.DB, note *Note) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "location_name", "date", "text", "latitude", "longitude", "updated_at"}),
	}).Create(note).Error
}

func CountNotes(db *gorm.DB) (int, error) {
	var count int64
	err := db.Model(&Note{}).Count(&count).Error
	return int(count), err
}
