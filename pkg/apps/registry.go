package apps

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// apps.yaml plus the referenced per-app files live in a marketplace/
// directory resolved against the working directory or the executable.
//
// Adding an app requires only:
// - a new <app>.yaml in marketplace/apps/
// - listing it in marketplace/apps.yaml

type appsList struct {
	Apps []string `yaml:"apps"`
}

var loadOnce sync.Once
var loadErr error

// Load reads the marketplace catalog into the registry. Safe to call
// more than once; only the first call does work.
func Load() error {
	loadOnce.Do(func() {
		dir, err := findMarketplaceDir()
		if err != nil {
			loadErr = fmt.Errorf("apps registry: %w", err)
			return
		}
		loadErr = LoadDir(dir)
	})
	return loadErr
}

// LoadDir reads a marketplace directory and registers every listed app.
func LoadDir(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, "apps.yaml"))
	if err != nil {
		return fmt.Errorf("apps registry: %w", err)
	}

	var list appsList
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&list); err != nil {
		return fmt.Errorf("apps registry: parse apps.yaml: %w", err)
	}
	if len(list.Apps) == 0 {
		return fmt.Errorf("apps registry: apps.yaml has no entries")
	}

	for _, filename := range list.Apps {
		filename = strings.TrimSpace(filename)
		if filename == "" {
			continue
		}
		path := filepath.Join(dir, "apps", filename)
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("apps registry: read %s: %w", path, err)
		}

		var app App
		d := yaml.NewDecoder(strings.NewReader(string(b)))
		d.KnownFields(true)
		if err := d.Decode(&app); err != nil {
			return fmt.Errorf("apps registry: parse %s: %w", filename, err)
		}
		if strings.TrimSpace(app.Name) == "" {
			return fmt.Errorf("apps registry: %s has no 'app' name", filename)
		}
		Register(&app)
	}
	return nil
}

func findMarketplaceDir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		dir := filepath.Join(cwd, "marketplace")
		if _, err := os.Stat(filepath.Join(dir, "apps.yaml")); err == nil {
			return dir, nil
		}
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, dir := range []string{
			filepath.Join(exeDir, "marketplace"),
			filepath.Join(exeDir, "..", "marketplace"),
		} {
			if _, err := os.Stat(filepath.Join(dir, "apps.yaml")); err == nil {
				return dir, nil
			}
		}
	}

	return "", fmt.Errorf("marketplace directory not found (looked in cwd/marketplace and exe/marketplace)")
}

// SizeMB accepts values like "2GB", "512MB" or a plain megabyte count.
type SizeMB int

// SizeGB accepts values like "25GB" or a plain gigabyte count.
type SizeGB int

func (s *SizeMB) UnmarshalYAML(node *yaml.Node) error {
	mb, err := parseSize(node, 1)
	if err != nil {
		return err
	}
	*s = SizeMB(mb)
	return nil
}

func (s *SizeGB) UnmarshalYAML(node *yaml.Node) error {
	mb, err := parseSize(node, 1024)
	if err != nil {
		return err
	}
	*s = SizeGB(mb / 1024)
	return nil
}

// parseSize returns the value in megabytes. defaultUnitMB is what a
// bare number means (1 for RAM fields, 1024 for disk fields).
func parseSize(node *yaml.Node, defaultUnitMB int) (int, error) {
	if node == nil || node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("invalid size value")
	}
	value := strings.ToUpper(strings.TrimSpace(node.Value))
	if value == "" {
		return 0, fmt.Errorf("invalid size value")
	}

	unit := defaultUnitMB
	switch {
	case strings.HasSuffix(value, "GB"):
		unit = 1024
		value = strings.TrimSuffix(value, "GB")
	case strings.HasSuffix(value, "MB"):
		unit = 1
		value = strings.TrimSuffix(value, "MB")
	case strings.HasSuffix(value, "G"):
		unit = 1024
		value = strings.TrimSuffix(value, "G")
	case strings.HasSuffix(value, "M"):
		unit = 1
		value = strings.TrimSuffix(value, "M")
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q", node.Value)
	}
	return n * unit, nil
}
