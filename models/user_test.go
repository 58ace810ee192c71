package models

import (
	"testing"

	"bitbucket.org/paradixe/oit_backend/utils"
)

func TestPasswordMatches(t *testing.T) {
	hashed, err := utils.HashPassword("s3creto")
	if err != nil {
		t.Fatal(err)
	}

	if !passwordMatches(string(hashed), "s3creto") {
		t.Error("correct password rejected")
	}
	if passwordMatches(string(hashed), "otro") {
		t.Error("wrong password accepted")
	}
	// a corrupted stored hash must never validate, whatever the input
	if passwordMatches("not-a-bcrypt-hash", "s3creto") {
		t.Error("corrupted hash accepted")
	}
	if passwordMatches("", "") {
		t.Error("empty hash accepted")
	}
}
