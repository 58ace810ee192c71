package models

import (
	"log"

	"bitbucket.org/paradixe/oit_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Resource{}, &Booking{},
		&OitDocument{}, &SamplingRecord{},
		&User{}, &Notification{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
