package auth

import (
	"testing"

	"github.com/letterdrop/letterdrop/internal/krypto"
)

// The comparison hash must carry the same argon2 parameters as real
// password hashes. Verification re-derives with the stored parameters,
// so a cheaper comparison hash would make failed logins for unknown
// usernames measurably faster than for known ones.
func Test_Service_ComparisonHashParams(t *testing.T) {
	svc, err := NewService(nil, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	reference, err := krypto.HashArgon2([]byte("placeholder password"))
	if err != nil {
		t.Fatalf("failed to hash reference input: %v", err)
	}

	got := svc.comparisonHash
	if got.MemoryKiB != reference.MemoryKiB {
		t.Errorf("got memory %d, want %d", got.MemoryKiB, reference.MemoryKiB)
	}
	if got.Iterations != reference.Iterations {
		t.Errorf("got iterations %d, want %d", got.Iterations, reference.Iterations)
	}
	if got.Parallelism != reference.Parallelism {
		t.Errorf("got parallelism %d, want %d", got.Parallelism, reference.Parallelism)
	}
}
