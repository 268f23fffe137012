package sha256

import "testing"

func TestHasherKnownDigest(t *testing.T) {
	t.Parallel()

	got, err := New().Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestHasherDistinguishesSnapshots(t *testing.T) {
	t.Parallel()

	h := New()
	a, _ := h.Hash([]byte(`[{"title":"A"}]`))
	b, _ := h.Hash([]byte(`[{"title":"B"}]`))
	again, _ := h.Hash([]byte(`[{"title":"A"}]`))
	if a == b {
		t.Fatal("expected different snapshots to hash differently")
	}
	if a != again {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, again)
	}
}
