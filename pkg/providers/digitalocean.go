package providers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"
)

// DigitalOcean implements Provider on godo. Auth comes from
// DIGITALOCEAN_TOKEN (or DO_TOKEN).
type DigitalOcean struct {
	client *godo.Client
}

func NewDigitalOcean() *DigitalOcean {
	token := os.Getenv("DIGITALOCEAN_TOKEN")
	if token == "" {
		token = os.Getenv("DO_TOKEN")
	}

	var client *godo.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = godo.NewClient(oauth2.NewClient(context.Background(), ts))
	}
	return &DigitalOcean{client: client}
}

func (d *DigitalOcean) Name() string { return "digitalocean" }

func (d *DigitalOcean) Description() string { return "DigitalOcean - Simple cloud hosting" }

func (d *DigitalOcean) DefaultRegion() string { return "fra1" }

func (d *DigitalOcean) ensureClient() error {
	if d.client == nil {
		return fmt.Errorf("DIGITALOCEAN_TOKEN or DO_TOKEN environment variable required")
	}
	return nil
}

func (d *DigitalOcean) ListRegions(ctx context.Context) ([]Region, error) {
	if err := d.ensureClient(); err != nil {
		return nil, err
	}

	regions, _, err := d.client.Regions.List(ctx, &godo.ListOptions{PerPage: 100})
	if err != nil {
		return nil, err
	}

	var result []Region
	for _, r := range regions {
		if r.Available {
			result = append(result, Region{Slug: r.Slug, Name: r.Name})
		}
	}
	return result, nil
}

func (d *DigitalOcean) ListSizes(ctx context.Context) ([]Size, error) {
	return drainSizePages(ctx, d.SizePages(""))
}

// ListSizesForRegion narrows the catalog to sizes offered in region.
func (d *DigitalOcean) ListSizesForRegion(ctx context.Context, region string) ([]Size, error) {
	return drainSizePages(ctx, d.SizePages(region))
}

func drainSizePages(ctx context.Context, next func(context.Context) ([]Size, error)) ([]Size, error) {
	var out []Size
	for {
		page, err := next(ctx)
		out = append(out, page...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// SizePages returns the size catalog one API page at a time, ending
// with io.EOF alongside the final page. Each call to SizePages starts
// a fresh cursor.
func (d *DigitalOcean) SizePages(region string) func(ctx context.Context) ([]Size, error) {
	page := 1
	done := false
	return func(ctx context.Context) ([]Size, error) {
		if done {
			return nil, io.EOF
		}
		if err := d.ensureClient(); err != nil {
			return nil, err
		}

		sizes, resp, err := d.client.Sizes.List(ctx, &godo.ListOptions{Page: page, PerPage: 25})
		if err != nil {
			return nil, err
		}

		var out []Size
		for _, s := range sizes {
			if !s.Available {
				continue
			}
			if region != "" && !sizeInRegion(s, region) {
				continue
			}
			out = append(out, Size{
				Slug:         s.Slug,
				VCPUs:        s.Vcpus,
				MemoryMB:     s.Memory,
				DiskGB:       s.Disk,
				PriceMonthly: float64(s.PriceMonthly),
				PriceHourly:  float64(s.PriceHourly),
			})
		}

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			done = true
			return out, io.EOF
		}
		page++
		return out, nil
	}
}

func sizeInRegion(s godo.Size, region string) bool {
	for _, r := range s.Regions {
		if r == region {
			return true
		}
	}
	return false
}

func (d *DigitalOcean) GetSizeForSpecs(ctx context.Context, specs Specs) (string, error) {
	sizes, err := d.ListSizes(ctx)
	if err != nil {
		return "", err
	}
	best, ok := pickBestSize(sizes, specs)
	if !ok {
		return "", fmt.Errorf("no size found matching specs: %d CPUs, %dMB RAM", specs.CPUs, specs.MemoryMB)
	}
	return best.Slug, nil
}

func (d *DigitalOcean) CreateServer(ctx context.Context, config *DeployConfig) (*Server, error) {
	if err := d.ensureClient(); err != nil {
		return nil, err
	}

	sshKeyID, err := d.ensureSSHKey(ctx, config.SSHPublicKey)
	if err != nil {
		return nil, fmt.Errorf("SSH key setup failed: %w", err)
	}

	image := config.Image
	if image == "" {
		image = "ubuntu-22-04-x64"
	}

	droplet, _, err := d.client.Droplets.Create(ctx, &godo.DropletCreateRequest{
		Name:    config.Name,
		Region:  config.Region,
		Size:    config.Size,
		Image:   godo.DropletCreateImage{Slug: image},
		SSHKeys: []godo.DropletCreateSSHKey{{ID: sshKeyID}},
		Tags:    config.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &Server{
		ID:     strconv.Itoa(droplet.ID),
		Name:   droplet.Name,
		Status: droplet.Status,
	}, nil
}

func (d *DigitalOcean) WaitForServer(ctx context.Context, id string) (*Server, error) {
	if err := d.ensureClient(); err != nil {
		return nil, err
	}

	dropletID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid server ID: %s", id)
	}

	timeout := time.After(5 * time.Minute)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for server %s", id)
		case <-ticker.C:
			droplet, _, err := d.client.Droplets.Get(ctx, dropletID)
			if err != nil {
				return nil, err
			}
			if droplet.Status != "active" {
				continue
			}
			ip := ""
			for _, network := range droplet.Networks.V4 {
				if network.Type == "public" {
					ip = network.IPAddress
					break
				}
			}
			return &Server{ID: id, Name: droplet.Name, IP: ip, Status: droplet.Status}, nil
		}
	}
}

func (d *DigitalOcean) DestroyServer(ctx context.Context, id string) error {
	if err := d.ensureClient(); err != nil {
		return err
	}
	dropletID, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("invalid server ID: %s", id)
	}
	_, err = d.client.Droplets.Delete(ctx, dropletID)
	return err
}

func (d *DigitalOcean) ensureSSHKey(ctx context.Context, publicKey string) (int, error) {
	keys, _, err := d.client.Keys.List(ctx, &godo.ListOptions{PerPage: 100})
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if key.Name == "launchkit-key" {
			return key.ID, nil
		}
	}

	key, _, err := d.client.Keys.Create(ctx, &godo.KeyCreateRequest{
		Name:      "launchkit-key",
		PublicKey: publicKey,
	})
	if err != nil {
		return 0, err
	}
	return key.ID, nil
}

func init() {
	Register(NewDigitalOcean())
}
