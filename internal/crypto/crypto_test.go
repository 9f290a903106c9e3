package crypto

import "testing"

func TestHashIdentifier(t *testing.T) {
	a := HashIdentifier("203.0.113.7")
	b := HashIdentifier("203.0.113.7")
	if a != b {
		t.Error("same identifier produced different hashes")
	}
	if a == HashIdentifier("203.0.113.8") {
		t.Error("different identifiers produced the same hash")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == "203.0.113.7" {
		t.Error("identifier stored in the clear")
	}
}

func TestAdminToken(t *testing.T) {
	hash, err := HashAdminToken("s3cret")
	if err != nil {
		t.Fatalf("HashAdminToken() error = %v", err)
	}

	if !VerifyAdminToken(hash, "s3cret") {
		t.Error("correct token rejected")
	}
	if VerifyAdminToken(hash, "wrong") {
		t.Error("wrong token accepted")
	}
	if VerifyAdminToken("not-a-bcrypt-hash", "s3cret") {
		t.Error("malformed hash accepted")
	}
}
