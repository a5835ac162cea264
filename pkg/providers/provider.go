// Package providers holds the cloud provider registry. Providers back
// the wizard's region and size pickers and carry out server creation
// for the deploy pipeline.
package providers

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

// Provider is the interface all cloud providers implement.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// DefaultRegion returns the default region slug.
	DefaultRegion() string

	// ListRegions returns available regions.
	ListRegions(ctx context.Context) ([]Region, error)

	// ListSizes returns available VM sizes.
	ListSizes(ctx context.Context) ([]Size, error)

	// GetSizeForSpecs finds the cheapest size matching minimum specs.
	GetSizeForSpecs(ctx context.Context, specs Specs) (string, error)

	// CreateServer provisions a new server.
	CreateServer(ctx context.Context, config *DeployConfig) (*Server, error)

	// WaitForServer blocks until the server is running with an IP.
	WaitForServer(ctx context.Context, id string) (*Server, error)

	// DestroyServer deletes a server.
	DestroyServer(ctx context.Context, id string) error
}

// RegionSizer is implemented by providers whose size catalog differs
// per region.
type RegionSizer interface {
	ListSizesForRegion(ctx context.Context, region string) ([]Size, error)
}

// SizePager is implemented by providers that can stream their size
// catalog page by page. The returned function yields one page per
// call and io.EOF when exhausted; each SizePages call restarts the
// listing.
type SizePager interface {
	SizePages(region string) func(ctx context.Context) ([]Size, error)
}

// Region is a datacenter region.
type Region struct {
	Slug string
	Name string
}

// Size is a VM size/plan.
type Size struct {
	Slug         string
	VCPUs        int
	MemoryMB     int
	DiskGB       int
	PriceMonthly float64
	PriceHourly  float64
}

// Specs are minimum hardware requirements.
type Specs struct {
	CPUs     int
	MemoryMB int
	DiskGB   int
}

// Server is a created server.
type Server struct {
	ID     string
	Name   string
	IP     string
	Status string
}

// DeployConfig configures server creation.
type DeployConfig struct {
	Name          string
	Region        string
	Size          string
	Image         string // OS image, defaults to Ubuntu 22.04
	SSHPublicKey  string
	SSHPrivateKey string
	Domain        string
	Tags          []string
}

// Registry holds all registered providers.
var Registry = make(map[string]Provider)

// Register adds a provider to the registry.
func Register(p Provider) {
	Registry[p.Name()] = p
}

// Get retrieves a provider by name.
func Get(name string) (Provider, error) {
	p, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// WaitForSSH polls until the host accepts TCP connections on port.
func WaitForSSH(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	timeout := time.After(5 * time.Minute)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for SSH on %s", addr)
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
			if err == nil {
				conn.Close()
				// Extra wait for sshd to finish coming up.
				time.Sleep(5 * time.Second)
				return nil
			}
		}
	}
}

// pickBestSize returns the cheapest size satisfying specs. DiskGB is
// only compared when requested; unpriced sizes lose to priced ones.
func pickBestSize(sizes []Size, specs Specs) (*Size, bool) {
	var best *Size
	for i := range sizes {
		s := &sizes[i]
		if s.VCPUs < specs.CPUs || s.MemoryMB < specs.MemoryMB {
			continue
		}
		if specs.DiskGB > 0 && s.DiskGB < specs.DiskGB {
			continue
		}
		switch {
		case best == nil:
			best = s
		case s.PriceMonthly > 0 && (best.PriceMonthly == 0 || s.PriceMonthly < best.PriceMonthly):
			best = s
		}
	}
	return best, best != nil
}

// sanitizeHostname reduces an arbitrary string to a DNS-safe label:
// [a-z0-9-] only, invalid runs collapsed to '-', max 63 chars.
func sanitizeHostname(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 63 {
		out = strings.Trim(out[:63], "-")
	}
	return out
}

// Names returns the registered provider names, sorted.
func Names() []string {
	out := make([]string, 0, len(Registry))
	for name := range Registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
