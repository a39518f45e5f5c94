package privacy

import "testing"

func TestHashOrigin(t *testing.T) {
	h := NewHasher("salt-a")

	t.Run("empty origin yields sentinel", func(t *testing.T) {
		if got := h.HashOrigin(""); got != Unknown {
			t.Errorf("HashOrigin(\"\") = %q, want %q", got, Unknown)
		}
		if got := h.HashOrigin("   "); got != Unknown {
			t.Errorf("HashOrigin(whitespace) = %q, want %q", got, Unknown)
		}
	})

	t.Run("deterministic for one salt", func(t *testing.T) {
		a := h.HashOrigin("203.0.113.9|agent")
		b := h.HashOrigin("203.0.113.9|agent")
		if a != b {
			t.Errorf("same origin hashed differently: %q vs %q", a, b)
		}
		if len(a) != 64 {
			t.Errorf("digest length = %d, want 64 hex chars", len(a))
		}
	})

	t.Run("raw origin never appears in output", func(t *testing.T) {
		got := h.HashOrigin("203.0.113.9|agent")
		if got == "203.0.113.9|agent" {
			t.Error("origin stored unhashed")
		}
	})

	t.Run("different salts diverge", func(t *testing.T) {
		other := NewHasher("salt-b")
		if h.HashOrigin("origin") == other.HashOrigin("origin") {
			t.Error("hashes collide across salts")
		}
	})

	t.Run("different origins diverge", func(t *testing.T) {
		if h.HashOrigin("a") == h.HashOrigin("b") {
			t.Error("distinct origins collide")
		}
	})

	t.Run("oversized salt still hashes", func(t *testing.T) {
		big := NewHasher(string(make([]byte, 200)))
		if got := big.HashOrigin("origin"); got == Unknown {
			t.Errorf("oversized salt fell back to sentinel")
		}
	})
}
