package doc

import (
	"strings"
	"testing"
)

func TestResolver_BindResolveUnbind(t *testing.T) {
	rs := NewResolver()
	r := &Run{Text: "hello"}
	addr := MintAddress()

	rs.Bind(r, addr)
	got, ok := rs.Resolve(addr)
	if !ok || got != r {
		t.Fatalf("Resolve(%s) = %v, %v", addr, got, ok)
	}
	back, ok := rs.AddressOf(r)
	if !ok || back != addr {
		t.Errorf("AddressOf = %q, %v", back, ok)
	}

	rs.Unbind(addr)
	if _, ok := rs.Resolve(addr); ok {
		t.Error("address still resolvable after Unbind")
	}
	if _, ok := rs.AddressOf(r); ok {
		t.Error("reverse lookup still live after Unbind")
	}
}

func TestResolver_ResolveUnknown(t *testing.T) {
	rs := NewResolver()
	if _, ok := rs.Resolve("Run_nope"); ok {
		t.Error("unknown address should not resolve")
	}
}

func TestMintAddress_UniqueAndPrefixed(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		addr := MintAddress()
		if !strings.HasPrefix(addr, AddressPrefix) {
			t.Fatalf("address %q missing prefix", addr)
		}
		if seen[addr] {
			t.Fatalf("address %q minted twice", addr)
		}
		seen[addr] = true
	}
}
