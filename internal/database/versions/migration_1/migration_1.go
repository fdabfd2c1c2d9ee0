package migration_1

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Adds the settings table and the conversation preview column.

type Conversation struct {
	Preview string
}

type Setting struct {
	Key   string         `gorm:"primaryKey;size:255"`
	Value datatypes.JSON `gorm:"type:jsonb"`
}

func Migration(txn *gorm.DB) error {
	if err := txn.AutoMigrate(&Setting{}); err != nil {
		return err
	}
	return txn.Migrator().AddColumn(&Conversation{}, "Preview")
}

func Rollback(txn *gorm.DB) error {
	if err := txn.Migrator().DropColumn(&Conversation{}, "Preview"); err != nil {
		return err
	}
	return txn.Migrator().DropTable(&Setting{})
}
