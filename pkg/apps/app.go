// Package apps is the deployable application catalog. Apps are defined
// in marketplace YAML: a name, minimum hardware, and the shell steps
// that install them on a fresh Ubuntu server.
package apps

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/launchkit/launchkit/pkg/providers"
	"github.com/launchkit/launchkit/pkg/utils"
)

// App is one installable application.
type App struct {
	Name        string   `yaml:"app"`
	Description string   `yaml:"description"`
	DomainHint  string   `yaml:"domain_hint"`
	MinSpec     MinSpec  `yaml:"min_spec"`
	Steps       []Step   `yaml:"steps"`
	SSLSteps    []Step   `yaml:"ssl_steps"`
	Summary     []string `yaml:"summary"`
}

// MinSpec is the minimum hardware an app needs.
type MinSpec struct {
	CPU  int    `yaml:"cpu"`
	RAM  SizeMB `yaml:"ram"`
	Disk SizeGB `yaml:"disk"`
}

// Step is one remote shell command. Run may use {domain}, {server_ip}
// and {email} template variables.
type Step struct {
	Name string `yaml:"name"`
	Run  string `yaml:"run"`
}

// InstallConfig holds everything the install steps need.
type InstallConfig struct {
	Domain    string
	ServerIP  string
	SSHKey    string
	SSHUser   string
	EnableSSL bool
	Email     string
	Logger    func(format string, args ...any)
}

func (a *App) MinSpecs() providers.Specs {
	return providers.Specs{
		CPUs:     a.MinSpec.CPU,
		MemoryMB: int(a.MinSpec.RAM),
		DiskGB:   int(a.MinSpec.Disk),
	}
}

// Install runs the app's steps on the target server over SSH.
func (a *App) Install(ctx context.Context, config *InstallConfig) error {
	return a.runSteps(ctx, config, a.Steps)
}

// SetupSSL runs the optional SSL steps. A no-op when the app declares
// none.
func (a *App) SetupSSL(ctx context.Context, config *InstallConfig) error {
	if len(a.SSLSteps) == 0 {
		return nil
	}
	return a.runSteps(ctx, config, a.SSLSteps)
}

func (a *App) runSteps(ctx context.Context, config *InstallConfig, steps []Step) error {
	user := config.SSHUser
	if user == "" {
		user = "root"
	}
	runner := utils.NewSSHRunner(config.ServerIP, user, config.SSHKey)
	if err := runner.Connect(ctx); err != nil {
		return fmt.Errorf("ssh connect: %w", err)
	}
	defer runner.Close()

	logf := config.Logger
	if logf == nil {
		logf = func(string, ...any) {}
	}

	for _, step := range steps {
		if step.Name != "" {
			logf("→ %s\n", step.Name)
		}
		if err := runner.Run(ctx, a.expand(step.Run, config)); err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
	}
	return nil
}

func (a *App) expand(cmd string, config *InstallConfig) string {
	r := strings.NewReplacer(
		"{domain}", config.Domain,
		"{server_ip}", config.ServerIP,
		"{email}", config.Email,
	)
	return r.Replace(cmd)
}

// PrintSummary logs post-install info.
func (a *App) PrintSummary(logf func(format string, args ...any), ip, domain string) {
	for _, line := range a.Summary {
		r := strings.NewReplacer("{domain}", domain, "{server_ip}", ip)
		logf("%s\n", r.Replace(line))
	}
}

// Registry holds all known apps by name.
var Registry = make(map[string]*App)

// Register adds an app, overwriting any previous entry with the name.
func Register(a *App) {
	Registry[a.Name] = a
}

// Get retrieves an app by name.
func Get(name string) (*App, error) {
	a, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown app: %s", name)
	}
	return a, nil
}

// Names returns the registered app names, sorted.
func Names() []string {
	out := make([]string, 0, len(Registry))
	for name := range Registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
