package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/scaleway/scaleway-sdk-go/api/instance/v1"
	"github.com/scaleway/scaleway-sdk-go/scw"
	"gopkg.in/yaml.v3"
)

// Scaleway implements Provider on the Scaleway Go SDK.
//
// Auth:
// - SCW_ACCESS_KEY / SCW_SECRET_KEY env vars
// - SCW_DEFAULT_PROJECT_ID (required for server create)
// - SCW_DEFAULT_ZONE (defaults to fr-par-1)
// - ~/.config/scw/config.yaml profile fallback
type Scaleway struct {
	client *scw.Client
	api    *instance.API

	accessKey string
	secretKey string
	projectID string
	orgID     string
	zone      scw.Zone
}

func NewScaleway() *Scaleway {
	return &Scaleway{zone: scw.Zone("fr-par-1")}
}

func (s *Scaleway) Name() string { return "scaleway" }

func (s *Scaleway) Description() string { return "Scaleway - European cloud hosting" }

func (s *Scaleway) DefaultRegion() string { return string(s.zone) }

func (s *Scaleway) ensureAPI() (*instance.API, error) {
	if s.api != nil {
		return s.api, nil
	}

	if s.accessKey == "" {
		s.accessKey = os.Getenv("SCW_ACCESS_KEY")
	}
	if s.secretKey == "" {
		s.secretKey = os.Getenv("SCW_SECRET_KEY")
	}
	if s.projectID == "" {
		s.projectID = os.Getenv("SCW_DEFAULT_PROJECT_ID")
	}
	if s.orgID == "" {
		s.orgID = os.Getenv("SCW_DEFAULT_ORGANIZATION_ID")
	}
	if z := os.Getenv("SCW_DEFAULT_ZONE"); z != "" {
		s.zone = scw.Zone(z)
	}

	if strings.TrimSpace(s.accessKey) == "" || strings.TrimSpace(s.secretKey) == "" {
		s.loadFromConfigFile()
	}
	if strings.TrimSpace(s.accessKey) == "" || strings.TrimSpace(s.secretKey) == "" {
		return nil, fmt.Errorf("SCW_ACCESS_KEY and SCW_SECRET_KEY are required")
	}

	opts := []scw.ClientOption{
		scw.WithAuth(s.accessKey, s.secretKey),
		scw.WithDefaultZone(s.zone),
	}
	if strings.TrimSpace(s.projectID) != "" {
		opts = append(opts, scw.WithDefaultProjectID(s.projectID))
	}
	if strings.TrimSpace(s.orgID) != "" {
		opts = append(opts, scw.WithDefaultOrganizationID(s.orgID))
	}

	client, err := scw.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.api = instance.NewAPI(client)
	return s.api, nil
}

// Scaleway CLI config file format (best effort). We accept both the
// access_key spelling and the acces_key typo seen in the wild.
type scalewayCLIConfig struct {
	Profiles       map[string]map[string]any `yaml:"profiles"`
	ActiveProfile  string                    `yaml:"active_profile"`
	DefaultProfile string                    `yaml:"default_profile"`
}

func scalewayConfigPaths() []string {
	var out []string
	if p := os.Getenv("SCW_CONFIG_PATH"); p != "" {
		out = append(out, p)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "scw", "config.yaml"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, filepath.Join(home, ".config", "scw", "config.yaml"))
	}
	return out
}

func (s *Scaleway) loadFromConfigFile() {
	var cfg scalewayCLIConfig
	loaded := false
	for _, path := range scalewayConfigPaths() {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			continue
		}
		if len(cfg.Profiles) > 0 {
			loaded = true
			break
		}
	}
	if !loaded {
		return
	}

	profile := os.Getenv("SCW_PROFILE")
	if strings.TrimSpace(profile) == "" {
		profile = chooseScalewayProfileName(cfg)
	}
	p := cfg.Profiles[profile]
	if p == nil {
		return
	}

	if strings.TrimSpace(s.accessKey) == "" {
		s.accessKey = getStringAny(p, "access_key", "acces_key")
	}
	if strings.TrimSpace(s.secretKey) == "" {
		s.secretKey = getStringAny(p, "secret_key")
	}
	if strings.TrimSpace(s.projectID) == "" {
		s.projectID = getStringAny(p, "default_project_id", "project_id")
	}
	if strings.TrimSpace(s.orgID) == "" {
		s.orgID = getStringAny(p, "default_organization_id", "organization_id")
	}
	if z := getStringAny(p, "default_zone", "zone"); z != "" {
		s.zone = scw.Zone(z)
	}
}

func chooseScalewayProfileName(cfg scalewayCLIConfig) string {
	if strings.TrimSpace(cfg.ActiveProfile) != "" {
		return cfg.ActiveProfile
	}
	if strings.TrimSpace(cfg.DefaultProfile) != "" {
		return cfg.DefaultProfile
	}
	keys := make([]string, 0, len(cfg.Profiles))
	for k := range cfg.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

func getStringAny(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		default:
			return fmt.Sprint(t)
		}
	}
	return ""
}

func (s *Scaleway) ListRegions(ctx context.Context) ([]Region, error) {
	api, err := s.ensureAPI()
	if err != nil {
		return nil, err
	}

	zones := api.Zones()
	out := make([]Region, 0, len(zones))
	for _, z := range zones {
		slug := string(z)
		out = append(out, Region{Slug: slug, Name: humanZoneName(slug)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *Scaleway) ListSizes(ctx context.Context) ([]Size, error) {
	return s.listSizesForZone(ctx, s.zone)
}

// ListSizesForRegion lists sizes for a zone slug like nl-ams-3.
func (s *Scaleway) ListSizesForRegion(ctx context.Context, region string) ([]Size, error) {
	zone := scw.Zone(strings.TrimSpace(region))
	if zone == "" {
		zone = s.zone
	}
	return s.listSizesForZone(ctx, zone)
}

func (s *Scaleway) listSizesForZone(ctx context.Context, zone scw.Zone) ([]Size, error) {
	api, err := s.ensureAPI()
	if err != nil {
		return nil, err
	}

	typesResp, err := api.ListServersTypes(&instance.ListServersTypesRequest{
		Zone: zone,
	}, scw.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	// Availability is zone specific; drop offers in shortage.
	availResp, err := api.GetServerTypesAvailability(&instance.GetServerTypesAvailabilityRequest{
		Zone: zone,
	}, scw.WithContext(ctx))
	if err != nil {
		availResp = &instance.GetServerTypesAvailabilityResponse{Servers: map[string]*instance.GetServerTypesAvailabilityResponseAvailability{}}
	}

	var result []Size
	for slug, st := range typesResp.Servers {
		if st == nil || st.EndOfService {
			continue
		}
		if st.Arch != instance.ArchX86_64 {
			continue
		}
		if a, ok := availResp.Servers[slug]; ok && a != nil {
			if a.Availability != instance.ServerTypesAvailabilityAvailable && a.Availability != instance.ServerTypesAvailabilityScarce {
				continue
			}
		}

		diskGB := 0
		if st.VolumesConstraint != nil {
			diskGB = int(uint64(st.VolumesConstraint.MinSize) / (1024 * 1024 * 1024))
		}
		priceHourly := float64(st.HourlyPrice)
		result = append(result, Size{
			Slug:         slug,
			VCPUs:        int(st.Ncpus),
			MemoryMB:     int(st.RAM / (1024 * 1024)),
			DiskGB:       diskGB,
			PriceHourly:  priceHourly,
			PriceMonthly: priceHourly * 24 * 30,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].PriceMonthly < result[j].PriceMonthly })
	return result, nil
}

func (s *Scaleway) GetSizeForSpecs(ctx context.Context, specs Specs) (string, error) {
	sizes, err := s.ListSizes(ctx)
	if err != nil {
		return "", err
	}
	best, ok := pickBestSize(sizes, specs)
	if !ok {
		return "", fmt.Errorf("no Scaleway instance type found matching specs: %d CPUs, %dMB RAM", specs.CPUs, specs.MemoryMB)
	}
	return best.Slug, nil
}

func (s *Scaleway) CreateServer(ctx context.Context, config *DeployConfig) (*Server, error) {
	api, err := s.ensureAPI()
	if err != nil {
		return nil, err
	}

	zone := scw.Zone(config.Region)
	if strings.TrimSpace(string(zone)) == "" {
		zone = s.zone
	}
	if strings.TrimSpace(s.projectID) == "" {
		return nil, fmt.Errorf("SCW_DEFAULT_PROJECT_ID is required to create servers")
	}

	image := config.Image
	if strings.TrimSpace(image) == "" {
		image, err = s.findUbuntuImage(ctx, api, zone)
		if err != nil {
			return nil, err
		}
	}

	dynamic := true
	resp, err := api.CreateServer(&instance.CreateServerRequest{
		Zone:              zone,
		Name:              config.Name,
		CommercialType:    config.Size,
		Image:             scw.StringPtr(image),
		DynamicIPRequired: &dynamic,
		Project:           scw.StringPtr(s.projectID),
		Tags:              config.Tags,
	}, scw.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	server := resp.Server
	if server == nil {
		return nil, fmt.Errorf("scaleway: create server returned nil server")
	}

	// SSH key goes in via cloud-init user data; a reboot applies it when
	// the instance was already running.
	if strings.TrimSpace(config.SSHPublicKey) != "" {
		cloudInit := fmt.Sprintf("#cloud-config\nssh_authorized_keys:\n  - %s\n", strings.TrimSpace(config.SSHPublicKey))
		if err := api.SetServerUserData(&instance.SetServerUserDataRequest{
			Zone:     zone,
			ServerID: server.ID,
			Key:      "cloud-init",
			Content:  strings.NewReader(cloudInit),
		}, scw.WithContext(ctx)); err != nil {
			return nil, fmt.Errorf("scaleway: set cloud-init user-data: %w", err)
		}
	}

	action := instance.ServerActionPoweron
	if server.State == instance.ServerStateRunning {
		action = instance.ServerActionReboot
	}
	dur := 5 * time.Minute
	_ = api.ServerActionAndWait(&instance.ServerActionAndWaitRequest{
		ServerID: server.ID,
		Zone:     zone,
		Action:   action,
		Timeout:  &dur,
	}, scw.WithContext(ctx))

	return &Server{
		ID:     encodeScalewayID(zone, server.ID),
		Name:   server.Name,
		Status: server.State.String(),
	}, nil
}

func (s *Scaleway) WaitForServer(ctx context.Context, id string) (*Server, error) {
	api, err := s.ensureAPI()
	if err != nil {
		return nil, err
	}

	zone, serverID, err := decodeScalewayID(id, s.zone)
	if err != nil {
		return nil, err
	}

	timeout := time.After(10 * time.Minute)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for Scaleway server %s", id)
		case <-ticker.C:
			resp, err := api.GetServer(&instance.GetServerRequest{
				Zone:     zone,
				ServerID: serverID,
			}, scw.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			if resp.Server == nil {
				continue
			}

			ip := scalewayPublicIPv4(resp.Server)
			if resp.Server.State == instance.ServerStateRunning && ip != "" {
				_ = WaitForSSH(ctx, ip, 22)
				return &Server{
					ID:     id,
					Name:   resp.Server.Name,
					IP:     ip,
					Status: resp.Server.State.String(),
				}, nil
			}
		}
	}
}

func (s *Scaleway) DestroyServer(ctx context.Context, id string) error {
	api, err := s.ensureAPI()
	if err != nil {
		return err
	}
	zone, serverID, err := decodeScalewayID(id, s.zone)
	if err != nil {
		return err
	}
	return api.DeleteServer(&instance.DeleteServerRequest{
		Zone:     zone,
		ServerID: serverID,
	}, scw.WithContext(ctx))
}

func (s *Scaleway) findUbuntuImage(ctx context.Context, api *instance.API, zone scw.Zone) (string, error) {
	public := true
	perPage := uint32(100)

	resp, err := api.ListImages(&instance.ListImagesRequest{
		Zone:    zone,
		Public:  &public,
		Name:    scw.StringPtr("Ubuntu"),
		PerPage: &perPage,
	}, scw.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("scaleway: list images: %w", err)
	}

	// Prefer 24.04, fall back to 22.04.
	best := ""
	for _, img := range resp.Images {
		if img == nil {
			continue
		}
		name := strings.ToLower(img.Name)
		if strings.Contains(name, "24.04") || strings.Contains(name, "noble") {
			best = img.ID
			break
		}
		if best == "" && (strings.Contains(name, "22.04") || strings.Contains(name, "jammy")) {
			best = img.ID
		}
	}
	if best == "" {
		return "", fmt.Errorf("scaleway: could not find a public Ubuntu image in zone %s; set provider image explicitly", zone)
	}
	return best, nil
}

func scalewayPublicIPv4(srv *instance.Server) string {
	if srv == nil {
		return ""
	}
	for _, ip := range srv.PublicIPs {
		if ip == nil {
			continue
		}
		if ip.Family == instance.ServerIPIPFamilyInet && ip.Address != nil {
			return ip.Address.String()
		}
	}
	if srv.PublicIP != nil && srv.PublicIP.Address != nil {
		return srv.PublicIP.Address.String()
	}
	return ""
}

// Server IDs carry the zone so Wait and Destroy need no extra state.
func encodeScalewayID(zone scw.Zone, serverID string) string {
	return fmt.Sprintf("%s:%s", string(zone), serverID)
}

func decodeScalewayID(id string, defaultZone scw.Zone) (scw.Zone, string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("empty server id")
	}
	parts := strings.SplitN(id, ":", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return scw.Zone(parts[0]), parts[1], nil
	}
	return defaultZone, id, nil
}

func humanZoneName(zone string) string {
	// zone format: <region>-<city>-<n> e.g. fr-par-1
	parts := strings.Split(zone, "-")
	if len(parts) < 3 {
		return zone
	}
	switch strings.Join(parts[:2], "-") {
	case "fr-par":
		return fmt.Sprintf("Paris %s", parts[2])
	case "nl-ams":
		return fmt.Sprintf("Amsterdam %s", parts[2])
	case "pl-waw":
		return fmt.Sprintf("Warsaw %s", parts[2])
	default:
		return zone
	}
}

func init() {
	Register(NewScaleway())
}
