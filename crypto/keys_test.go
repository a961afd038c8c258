package crypto

import (
	"bytes"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	addr := key.PubKey().Address()
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if !bytes.Equal(addr.Bytes(), decoded.Bytes()) {
		t.Fatalf("round trip mismatch: %x != %x", addr.Bytes(), decoded.Bytes())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "mpv1", "mpv1badchecksumbadchecksumbadchecksum"} {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestModuleAddressDeterministic(t *testing.T) {
	a := ModuleAddress("assets")
	b := ModuleAddress("assets")
	if a != b {
		t.Fatalf("module address must be deterministic")
	}
	if a == ModuleAddress("other") {
		t.Fatalf("distinct module names must derive distinct addresses")
	}
	if a == ([20]byte{}) {
		t.Fatalf("module address must be non-zero")
	}
}
