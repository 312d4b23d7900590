package store

import "log"

func AutoMigrate(db *DB) {
	if err := db.AutoMigrate(
		&User{},
		&CreditTransaction{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
}
