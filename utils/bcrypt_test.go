package utils

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")

	hashed, err := HashPassword("s3creto")
	if err != nil {
		t.Fatal(err)
	}
	if cost, err := bcrypt.Cost(hashed); err != nil || cost != 4 {
		t.Errorf("cost = %d (%v), want 4", cost, err)
	}

	if err := ComparePassword(string(hashed), "s3creto"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := ComparePassword(string(hashed), "otro"); err == nil {
		t.Error("wrong password accepted")
	}
	if err := ComparePassword("not-a-hash", "s3creto"); err == nil {
		t.Error("malformed hash accepted")
	}
}

func TestBcryptCostDefaults(t *testing.T) {
	cases := []string{"", "abc", "1", "99"}
	for _, value := range cases {
		t.Setenv("BCRYPT_COST", value)
		if got := bcryptCost(); got != bcrypt.DefaultCost {
			t.Errorf("BCRYPT_COST=%q: cost = %d, want default %d", value, got, bcrypt.DefaultCost)
		}
	}
}
