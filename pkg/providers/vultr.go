package providers

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vultr/govultr/v3"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

// Vultr implements Provider on govultr v3.
//
// Auth:
// - VULTR_API_KEY env var (recommended)
// - ~/.vultr-cli.yaml fallback (field: api-key)
type Vultr struct {
	client *govultr.Client
	apiKey string

	// cached OS id for Ubuntu
	ubuntuOSID int
}

func NewVultr() *Vultr {
	return &Vultr{}
}

func (v *Vultr) Name() string { return "vultr" }

func (v *Vultr) Description() string { return "Vultr - Global cloud hosting" }

func (v *Vultr) DefaultRegion() string { return "ewr" } // New Jersey (commonly available)

func (v *Vultr) ensureClient(ctx context.Context) (*govultr.Client, error) {
	if v.client != nil {
		return v.client, nil
	}

	if strings.TrimSpace(v.apiKey) == "" {
		v.apiKey = strings.TrimSpace(os.Getenv("VULTR_API_KEY"))
	}
	if strings.TrimSpace(v.apiKey) == "" {
		v.apiKey = loadVultrCLIKey()
	}
	if strings.TrimSpace(v.apiKey) == "" {
		return nil, fmt.Errorf("VULTR_API_KEY (or ~/.vultr-cli.yaml api-key) is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: v.apiKey})
	c := govultr.NewClient(oauth2.NewClient(ctx, ts))
	c.SetRateLimit(500)
	v.client = c
	return v.client, nil
}

func (v *Vultr) ListRegions(ctx context.Context) ([]Region, error) {
	c, err := v.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	regions, _, _, err := c.Region.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]Region, 0, len(regions))
	for _, r := range regions {
		name := r.ID
		if strings.TrimSpace(r.City) != "" && strings.TrimSpace(r.Country) != "" {
			name = fmt.Sprintf("%s (%s)", r.City, r.Country)
		} else if strings.TrimSpace(r.City) != "" {
			name = r.City
		}
		out = append(out, Region{Slug: r.ID, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (v *Vultr) ListSizes(ctx context.Context) ([]Size, error) {
	c, err := v.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	plans, err := v.listPlans(ctx, c, "vc2")
	if err != nil {
		// Fallback to all plans if vc2 isn't available for the account.
		plans, err = v.listPlans(ctx, c, "")
		if err != nil {
			return nil, err
		}
	}
	return plansToSizes(plans, nil), nil
}

// ListSizesForRegion narrows plans via the region availability endpoint,
// falling back to each plan's Locations field.
func (v *Vultr) ListSizesForRegion(ctx context.Context, region string) ([]Size, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return v.ListSizes(ctx)
	}

	c, err := v.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	plans, err := v.listPlans(ctx, c, "vc2")
	if err != nil {
		plans, err = v.listPlans(ctx, c, "")
		if err != nil {
			return nil, err
		}
	}

	allowed := map[string]struct{}{}
	if avail, _, aerr := c.Region.Availability(ctx, region, ""); aerr == nil && avail != nil {
		for _, id := range avail.AvailablePlans {
			allowed[id] = struct{}{}
		}
	}

	keep := func(p govultr.Plan) bool {
		if len(allowed) > 0 {
			_, ok := allowed[p.ID]
			return ok
		}
		if len(p.Locations) == 0 {
			return true
		}
		for _, loc := range p.Locations {
			if strings.EqualFold(loc, region) {
				return true
			}
		}
		return false
	}
	return plansToSizes(plans, keep), nil
}

func plansToSizes(plans []govultr.Plan, keep func(govultr.Plan) bool) []Size {
	out := make([]Size, 0, len(plans))
	for _, p := range plans {
		// Skip GPU plans.
		if p.GPUVRAM > 0 {
			continue
		}
		if keep != nil && !keep(p) {
			continue
		}
		monthly := float64(p.MonthlyCost)
		hourly := 0.0
		if monthly > 0 {
			hourly = monthly / (24 * 30)
		}
		out = append(out, Size{
			Slug:         p.ID,
			VCPUs:        p.VCPUCount,
			MemoryMB:     p.RAM,
			DiskGB:       p.Disk,
			PriceMonthly: monthly,
			PriceHourly:  hourly,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceMonthly < out[j].PriceMonthly })
	return out
}

func (v *Vultr) listPlans(ctx context.Context, c *govultr.Client, planType string) ([]govultr.Plan, error) {
	var out []govultr.Plan
	opts := &govultr.ListOptions{PerPage: 500}
	for {
		plans, meta, _, err := c.Plan.List(ctx, planType, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, plans...)
		if meta == nil || meta.Links == nil || meta.Links.Next == "" {
			break
		}
		opts.Cursor = meta.Links.Next
	}
	return out, nil
}

func (v *Vultr) GetSizeForSpecs(ctx context.Context, specs Specs) (string, error) {
	sizes, err := v.ListSizes(ctx)
	if err != nil {
		return "", err
	}
	best, ok := pickBestSize(sizes, specs)
	if !ok {
		return "", fmt.Errorf("no Vultr plan found matching specs: %d CPUs, %dMB RAM", specs.CPUs, specs.MemoryMB)
	}
	return best.Slug, nil
}

func (v *Vultr) CreateServer(ctx context.Context, config *DeployConfig) (*Server, error) {
	c, err := v.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	region := strings.TrimSpace(config.Region)
	if region == "" {
		region = v.DefaultRegion()
	}
	plan := strings.TrimSpace(config.Size)
	if plan == "" {
		return nil, fmt.Errorf("vultr: plan is required")
	}

	sshID, err := v.ensureSSHKey(ctx, c, config.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("vultr: ssh key setup failed: %w", err)
	}

	osID, err := v.ensureUbuntuOSID(ctx, c)
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(config.Name)
	if label == "" {
		label = "launchkit-server"
	}
	host := sanitizeHostname(label)
	if host == "" {
		host = "launchkit"
	}

	inst, _, err := c.Instance.Create(ctx, &govultr.InstanceCreateReq{
		Label:      label,
		Hostname:   host,
		Region:     region,
		Plan:       plan,
		OsID:       osID,
		SSHKeys:    []string{sshID},
		EnableIPv6: govultr.BoolToBoolPtr(false),
		Tags:       config.Tags,
	})
	if err != nil {
		return nil, err
	}
	if inst == nil || strings.TrimSpace(inst.ID) == "" {
		return nil, fmt.Errorf("vultr: create instance returned empty id")
	}

	return &Server{
		ID:     inst.ID,
		Name:   label,
		Status: inst.Status,
	}, nil
}

func (v *Vultr) WaitForServer(ctx context.Context, id string) (*Server, error) {
	c, err := v.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	id = strings.TrimSpace(id)
	timeout := time.After(10 * time.Minute)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for Vultr server %s", id)
		case <-ticker.C:
			inst, _, err := c.Instance.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if inst == nil {
				continue
			}
			ip := strings.TrimSpace(inst.MainIP)
			if ip != "" && ip != "0.0.0.0" {
				_ = WaitForSSH(ctx, ip, 22)
				return &Server{
					ID:     id,
					Name:   inst.Label,
					IP:     ip,
					Status: inst.Status,
				}, nil
			}
		}
	}
}

func (v *Vultr) DestroyServer(ctx context.Context, id string) error {
	c, err := v.ensureClient(ctx)
	if err != nil {
		return err
	}
	return c.Instance.Delete(ctx, strings.TrimSpace(id))
}

func (v *Vultr) ensureUbuntuOSID(ctx context.Context, c *govultr.Client) (int, error) {
	if v.ubuntuOSID != 0 {
		return v.ubuntuOSID, nil
	}

	oses, _, _, err := c.OS.List(ctx, &govultr.ListOptions{PerPage: 500})
	if err != nil {
		return 0, err
	}

	// Prefer newer Ubuntu.
	want := []string{"Ubuntu 24.04", "Ubuntu 22.04", "Ubuntu 20.04", "Ubuntu"}
	bestID := 0
	bestScore := -1
	for _, osx := range oses {
		name := strings.ToLower(strings.TrimSpace(osx.Name))
		if name == "" {
			continue
		}
		score := -1
		for i, w := range want {
			if strings.Contains(name, strings.ToLower(w)) {
				score = len(want) - i
				break
			}
		}
		if score > bestScore {
			bestScore = score
			bestID = osx.ID
		}
	}
	if bestID == 0 {
		return 0, fmt.Errorf("vultr: could not find an Ubuntu OS id")
	}
	v.ubuntuOSID = bestID
	return bestID, nil
}

func (v *Vultr) ensureSSHKey(ctx context.Context, c *govultr.Client, publicKey string) (string, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return "", fmt.Errorf("empty ssh public key")
	}

	keys, _, _, err := c.SSHKey.List(ctx, &govultr.ListOptions{PerPage: 500})
	if err != nil {
		return "", err
	}
	for _, k := range keys {
		if strings.TrimSpace(k.SSHKey) == publicKey {
			return k.ID, nil
		}
	}

	// Stable name derived from the key fingerprint.
	sum := sha1.Sum([]byte(publicKey))
	name := "launchkit-" + hex.EncodeToString(sum[:4])

	key, _, err := c.SSHKey.Create(ctx, &govultr.SSHKeyReq{
		Name:   name,
		SSHKey: publicKey,
	})
	if err != nil {
		return "", err
	}
	if key == nil || strings.TrimSpace(key.ID) == "" {
		return "", fmt.Errorf("vultr: ssh key create returned empty id")
	}
	return key.ID, nil
}

type vultrCLIConfig struct {
	APIKey string `yaml:"api-key"`
}

func loadVultrCLIKey() string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "vultr-cli.yaml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		paths = append(paths,
			filepath.Join(home, ".vultr-cli.yaml"),
			filepath.Join(home, ".config", "vultr-cli.yaml"),
		)
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var cfg vultrCLIConfig
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			continue
		}
		if key := strings.TrimSpace(cfg.APIKey); key != "" {
			return key
		}
	}
	return ""
}

func init() {
	Register(NewVultr())
}
