package auth

import "testing"

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-passw0rd" {
		t.Fatal("Hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "s3cret-passw0rd"); err != nil {
		t.Errorf("Expected matching password to verify: %v", err)
	}
	if err := CheckPassword(hash, "wrong-password"); err == nil {
		t.Error("Expected wrong password to fail")
	}
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Error("Expected different salts to produce different hashes")
	}
}
