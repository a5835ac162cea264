package providers

import (
	"context"
	"io"
	"testing"
)

func TestPickBestSizePrefersCheapestFit(t *testing.T) {
	sizes := []Size{
		{Slug: "tiny", VCPUs: 1, MemoryMB: 1024, DiskGB: 25, PriceMonthly: 5},
		{Slug: "big", VCPUs: 4, MemoryMB: 8192, DiskGB: 160, PriceMonthly: 40},
		{Slug: "mid", VCPUs: 2, MemoryMB: 4096, DiskGB: 80, PriceMonthly: 20},
	}

	best, ok := pickBestSize(sizes, Specs{CPUs: 2, MemoryMB: 4096})
	if !ok || best.Slug != "mid" {
		t.Fatalf("expected mid, got %+v (ok=%v)", best, ok)
	}
}

func TestPickBestSizeHonorsDisk(t *testing.T) {
	sizes := []Size{
		{Slug: "small-disk", VCPUs: 2, MemoryMB: 4096, DiskGB: 20, PriceMonthly: 10},
		{Slug: "big-disk", VCPUs: 2, MemoryMB: 4096, DiskGB: 100, PriceMonthly: 30},
	}

	best, ok := pickBestSize(sizes, Specs{CPUs: 2, MemoryMB: 4096, DiskGB: 50})
	if !ok || best.Slug != "big-disk" {
		t.Fatalf("expected big-disk, got %+v (ok=%v)", best, ok)
	}
}

func TestPickBestSizeNoMatch(t *testing.T) {
	sizes := []Size{{Slug: "tiny", VCPUs: 1, MemoryMB: 512}}
	if _, ok := pickBestSize(sizes, Specs{CPUs: 8, MemoryMB: 32768}); ok {
		t.Fatal("expected no match")
	}
}

func TestPickBestSizeUnpricedLosesToPriced(t *testing.T) {
	sizes := []Size{
		{Slug: "unpriced", VCPUs: 2, MemoryMB: 4096, PriceMonthly: 0},
		{Slug: "priced", VCPUs: 2, MemoryMB: 4096, PriceMonthly: 15},
	}
	best, _ := pickBestSize(sizes, Specs{CPUs: 2, MemoryMB: 4096})
	if best.Slug != "priced" {
		t.Fatalf("expected priced, got %s", best.Slug)
	}
}

func TestSanitizeHostname(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My App Server!", "my-app-server"},
		{"plausible-server", "plausible-server"},
		{"--weird--", "weird"},
		{"UPPER_case.name", "upper-case-name"},
	}
	for _, c := range cases {
		if got := sanitizeHostname(c.in); got != c.want {
			t.Fatalf("sanitizeHostname(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDrainSizePages(t *testing.T) {
	n := 0
	next := func(ctx context.Context) ([]Size, error) {
		n++
		switch n {
		case 1:
			return []Size{{Slug: "a"}, {Slug: "b"}}, nil
		case 2:
			return []Size{{Slug: "c"}}, io.EOF
		default:
			return nil, io.EOF
		}
	}

	sizes, err := drainSizePages(context.Background(), next)
	if err != nil {
		t.Fatalf("drainSizePages: %v", err)
	}
	if len(sizes) != 3 || sizes[2].Slug != "c" {
		t.Fatalf("unexpected sizes: %+v", sizes)
	}
}

func TestRegistryGet(t *testing.T) {
	if _, err := Get("digitalocean"); err != nil {
		t.Fatalf("digitalocean should self-register: %v", err)
	}
	if _, err := Get("nonexistent"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestProvidersImplementOptionalInterfaces(t *testing.T) {
	do, _ := Get("digitalocean")
	if _, ok := do.(SizePager); !ok {
		t.Fatal("digitalocean should stream size pages")
	}
	if _, ok := do.(RegionSizer); !ok {
		t.Fatal("digitalocean should filter sizes by region")
	}

	v, _ := Get("vultr")
	if _, ok := v.(RegionSizer); !ok {
		t.Fatal("vultr should filter sizes by region")
	}

	s, _ := Get("scaleway")
	if _, ok := s.(RegionSizer); !ok {
		t.Fatal("scaleway should filter sizes by region")
	}
}

func TestScalewayIDRoundTrip(t *testing.T) {
	id := encodeScalewayID("nl-ams-1", "abc-123")
	zone, serverID, err := decodeScalewayID(id, "fr-par-1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(zone) != "nl-ams-1" || serverID != "abc-123" {
		t.Fatalf("round trip lost data: %s %s", zone, serverID)
	}

	// Bare UUIDs fall back to the default zone.
	zone, serverID, err = decodeScalewayID("raw-uuid", "fr-par-1")
	if err != nil || string(zone) != "fr-par-1" || serverID != "raw-uuid" {
		t.Fatalf("fallback decode: %s %s %v", zone, serverID, err)
	}
}
