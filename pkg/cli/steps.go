package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/launchkit/launchkit/pkg/apps"
	"github.com/launchkit/launchkit/pkg/providers"
	"github.com/launchkit/launchkit/pkg/tui"
	"github.com/launchkit/launchkit/pkg/wizard"
	"github.com/launchkit/launchkit/pkg/wizard/picker"
)

// Field names of the deploy form.
const (
	FieldApp      = "app"
	FieldProvider = "provider"
	FieldRegion   = "region"
	FieldSize     = "size"
	FieldDomain   = "domain"
	FieldSSL      = "ssl"
	FieldEmail    = "email"
	FieldName     = "name"
	FieldConfirm  = "confirm"
)

// DeployFields is the deploy wizard's step order. Later steps depend on
// earlier answers; the email step only prompts when SSL was enabled.
func DeployFields() []wizard.Field {
	return []wizard.Field{
		wizard.NewField(FieldApp, appStep),
		wizard.NewField(FieldProvider, providerStep),
		wizard.NewField(FieldRegion, regionStep),
		wizard.NewField(FieldSize, sizeStep),
		wizard.NewField(FieldDomain, domainStep),
		wizard.NewField(FieldSSL, sslStep),
		wizard.NewField(FieldEmail, emailStep),
		wizard.NewField(FieldName, nameStep),
		wizard.NewField(FieldConfirm, confirmStep),
	}
}

// RunDeployWizard walks the user through the deploy questions. ok is
// false when the wizard was exited or cancelled.
func RunDeployWizard(ctx context.Context) (opts DeployOptions, ok bool) {
	form := wizard.New(nil, DeployFields()).Run(ctx)
	if form == nil {
		return DeployOptions{}, false
	}
	return OptionsFromForm(form), true
}

// OptionsFromForm maps a completed wizard form onto deploy options.
func OptionsFromForm(form wizard.Form) DeployOptions {
	opts := DeployOptions{}
	opts.AppName, _ = form[FieldApp].(string)
	opts.ProviderName, _ = form[FieldProvider].(string)
	opts.Region, _ = form[FieldRegion].(string)
	opts.Size, _ = form[FieldSize].(string)
	opts.Domain, _ = form[FieldDomain].(string)
	opts.EnableSSL, _ = form[FieldSSL].(bool)
	opts.Email, _ = form[FieldEmail].(string)
	opts.DeployName, _ = form[FieldName].(string)
	return opts
}

// backButton gives every step a uniform back affordance.
var backButton = []picker.Button{{ID: "back", Label: "Back"}}

func backSignal(id string) wizard.Signal {
	if id == "back" {
		return wizard.SignalBack
	}
	return wizard.SignalNone
}

func appStep(form wizard.Form) wizard.Prompter[string] {
	var items []picker.Item[string]
	for _, name := range apps.Names() {
		app := apps.Registry[name]
		items = append(items, picker.Item[string]{
			Label:       name,
			Description: app.Description,
			Detail:      fmt.Sprintf("needs %d vCPU, %d MB RAM, %d GB disk", app.MinSpec.CPU, app.MinSpec.RAM, app.MinSpec.Disk),
			Value:       name,
		})
	}
	return picker.New(tui.NewSurface(), picker.Fixed(items...), picker.Config[string]{
		Title:    "Which app do you want to deploy?",
		Buttons:  backButton,
		OnButton: backSignal,
	})
}

func providerStep(form wizard.Form) wizard.Prompter[string] {
	var items []picker.Item[string]
	for _, name := range providers.Names() {
		p := providers.Registry[name]
		items = append(items, picker.Item[string]{
			Label:       name,
			Description: p.Description(),
			Value:       name,
		})
	}
	return picker.New(tui.NewSurface(), picker.Fixed(items...), picker.Config[string]{
		Title:    "Which cloud provider?",
		Buttons:  backButton,
		OnButton: backSignal,
	})
}

func regionStep(form wizard.Form) wizard.Prompter[string] {
	name, _ := form[FieldProvider].(string)
	provider, err := providers.Get(name)
	if err != nil {
		return nil
	}

	source := picker.Deferred(func(ctx context.Context) ([]picker.Item[string], error) {
		regions, err := provider.ListRegions(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]picker.Item[string], 0, len(regions))
		for _, r := range regions {
			items = append(items, picker.Item[string]{
				Label:       r.Slug,
				Description: r.Name,
				Value:       r.Slug,
			})
		}
		return items, nil
	})

	return picker.New(tui.NewSurface(), source, picker.Config[string]{
		Title: fmt.Sprintf("Which %s region?", name),
		ErrorItem: func(err error) picker.Item[string] {
			return picker.Item[string]{
				Label:   "Could not load regions",
				Invalid: true,
				Message: err.Error(),
			}
		},
		Buttons:  backButton,
		OnButton: backSignal,
	})
}

func sizeStep(form wizard.Form) wizard.Prompter[string] {
	name, _ := form[FieldProvider].(string)
	provider, err := providers.Get(name)
	if err != nil {
		return nil
	}
	region, _ := form[FieldRegion].(string)

	var source picker.Source[string]
	if pager, ok := provider.(providers.SizePager); ok {
		// Stream the catalog page by page; the list stays usable while
		// later pages arrive.
		source = picker.Paged(func() picker.PageFunc[string] {
			next := pager.SizePages(region)
			return func(ctx context.Context) ([]picker.Item[string], error) {
				sizes, err := next(ctx)
				return sizeItems(sizes), err
			}
		})
	} else {
		source = picker.Deferred(func(ctx context.Context) ([]picker.Item[string], error) {
			var sizes []providers.Size
			var err error
			if rs, ok := provider.(providers.RegionSizer); ok && region != "" {
				sizes, err = rs.ListSizesForRegion(ctx, region)
			} else {
				sizes, err = provider.ListSizes(ctx)
			}
			return sizeItems(sizes), err
		})
	}

	return picker.New(tui.NewSurface(), source, picker.Config[string]{
		Title: "Which server size?",
		Placeholder: &picker.Item[string]{
			Label:   "No sizes available in this region",
			Invalid: true,
		},
		Buttons:  backButton,
		OnButton: backSignal,
	})
}

func sizeItems(sizes []providers.Size) []picker.Item[string] {
	items := make([]picker.Item[string], 0, len(sizes))
	for _, s := range sizes {
		items = append(items, picker.Item[string]{
			Label:       s.Slug,
			Description: fmt.Sprintf("%d vCPU, %d MB RAM, %d GB disk", s.VCPUs, s.MemoryMB, s.DiskGB),
			Detail:      fmt.Sprintf("$%.2f/month ($%.4f/hour)", s.PriceMonthly, s.PriceHourly),
			Value:       s.Slug,
		})
	}
	return items
}

var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func domainStep(form wizard.Form) wizard.Prompter[string] {
	hint := "app.example.com"
	if name, _ := form[FieldApp].(string); name != "" {
		if app, err := apps.Get(name); err == nil && app.DomainHint != "" {
			hint = app.DomainHint
		}
	}

	items := []picker.Item[string]{{
		Label:       "No domain",
		Description: "reach the app by server IP only",
		Value:       "",
	}}

	return picker.New(tui.NewSurface(), picker.Fixed(items...), picker.Config[string]{
		Title: "Which domain should the app use?",
		Custom: &picker.CustomInput[string]{
			Label: "Use this domain",
			Parse: func(text string) (string, wizard.Signal) {
				return strings.ToLower(strings.TrimSpace(text)), wizard.SignalNone
			},
			Validate: func(text string) string {
				if !domainPattern.MatchString(strings.TrimSpace(text)) {
					return "not a valid domain name"
				}
				return ""
			},
		},
		InputPlaceholder: hint,
		Buttons:          backButton,
		OnButton:         backSignal,
	})
}

func sslStep(form wizard.Form) wizard.Prompter[bool] {
	domain, _ := form[FieldDomain].(string)
	if domain == "" {
		// Certificates need a domain.
		return nil
	}
	return picker.New(tui.NewSurface(), picker.Fixed(
		picker.Item[bool]{
			Label:       "Enable HTTPS",
			Description: "automatic Let's Encrypt certificate",
			Value:       true,
		},
		picker.Item[bool]{
			Label:       "HTTP only",
			Description: "no certificate, plain HTTP",
			Value:       false,
		},
	), picker.Config[bool]{
		Title:    "Set up SSL?",
		Buttons:  backButton,
		OnButton: backSignal,
	})
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func emailStep(form wizard.Form) wizard.Prompter[string] {
	if on, _ := form[FieldSSL].(bool); !on {
		return nil
	}
	return picker.New(tui.NewSurface(), picker.Fixed[string](), picker.Config[string]{
		Title: "Email for certificate expiry notices?",
		Placeholder: &picker.Item[string]{
			Label:   "Type an email address",
			Invalid: true,
		},
		Custom: &picker.CustomInput[string]{
			Label: "Use this email",
			Parse: func(text string) (string, wizard.Signal) {
				return strings.TrimSpace(text), wizard.SignalNone
			},
			Validate: func(text string) string {
				if !emailPattern.MatchString(strings.TrimSpace(text)) {
					return "not a valid email address"
				}
				return ""
			},
		},
		InputPlaceholder: "you@example.com",
		Buttons:          backButton,
		OnButton:         backSignal,
	})
}

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func nameStep(form wizard.Form) wizard.Prompter[string] {
	app, _ := form[FieldApp].(string)
	suggested := fmt.Sprintf("%s-server", app)

	return picker.New(tui.NewSurface(), picker.Fixed(
		picker.Item[string]{
			Label:       suggested,
			Description: "suggested name",
			Value:       suggested,
		},
	), picker.Config[string]{
		Title: "Name the server",
		Custom: &picker.CustomInput[string]{
			Label: "Use this name",
			Parse: func(text string) (string, wizard.Signal) {
				return strings.TrimSpace(text), wizard.SignalNone
			},
			Validate: func(text string) string {
				if !namePattern.MatchString(strings.TrimSpace(text)) {
					return "lowercase letters, digits and hyphens only"
				}
				return ""
			},
		},
		InputPlaceholder: suggested,
		Buttons:          backButton,
		OnButton:         backSignal,
	})
}

func confirmStep(form wizard.Form) wizard.Prompter[bool] {
	app, _ := form[FieldApp].(string)
	provider, _ := form[FieldProvider].(string)
	region, _ := form[FieldRegion].(string)
	size, _ := form[FieldSize].(string)

	inner := picker.New(tui.NewSurface(), picker.Fixed(
		picker.Item[bool]{
			Label:       "Deploy now",
			Description: fmt.Sprintf("%s on %s, %s, %s", app, provider, region, size),
			Value:       true,
		},
		picker.Item[bool]{
			Label:       "Cancel",
			Description: "abort without creating anything",
			Value:       false,
		},
	), picker.Config[bool]{
		Title:    "Ready to deploy?",
		Buttons:  backButton,
		OnButton: backSignal,
	})

	// Choosing Cancel exits the wizard instead of answering false.
	return wizard.Transform(inner, func(v bool) (bool, wizard.Signal) {
		if !v {
			return false, wizard.SignalExit
		}
		return true, wizard.SignalNone
	})
}
