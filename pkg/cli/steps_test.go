package cli

import (
	"testing"

	"github.com/launchkit/launchkit/pkg/apps"
	"github.com/launchkit/launchkit/pkg/wizard"
)

func TestEmailStepOnlyWithSSL(t *testing.T) {
	if p := emailStep(wizard.Form{FieldSSL: false}); p != nil {
		t.Fatal("email step should be skipped without SSL")
	}
	if p := emailStep(wizard.Form{}); p != nil {
		t.Fatal("email step should be skipped when SSL unanswered")
	}
	if p := emailStep(wizard.Form{FieldSSL: true}); p == nil {
		t.Fatal("email step should prompt when SSL enabled")
	}
}

func TestSSLStepNeedsDomain(t *testing.T) {
	if p := sslStep(wizard.Form{FieldDomain: ""}); p != nil {
		t.Fatal("ssl step should be skipped without a domain")
	}
	if p := sslStep(wizard.Form{FieldDomain: "app.example.com"}); p == nil {
		t.Fatal("ssl step should prompt with a domain")
	}
}

func TestRegionStepNeedsKnownProvider(t *testing.T) {
	if p := regionStep(wizard.Form{FieldProvider: "not-a-provider"}); p != nil {
		t.Fatal("region step should be skipped for unknown providers")
	}
	if p := regionStep(wizard.Form{FieldProvider: "digitalocean"}); p == nil {
		t.Fatal("region step should prompt for a known provider")
	}
}

func TestDomainValidation(t *testing.T) {
	valid := []string{"app.example.com", "example.io", "a-b.example.co.uk"}
	invalid := []string{"", "no-dots", "-bad.example.com", "spaces in.it"}
	for _, d := range valid {
		if !domainPattern.MatchString(d) {
			t.Errorf("%q should be a valid domain", d)
		}
	}
	for _, d := range invalid {
		if domainPattern.MatchString(d) {
			t.Errorf("%q should be rejected", d)
		}
	}
}

func TestEmailValidation(t *testing.T) {
	if !emailPattern.MatchString("a@b.io") {
		t.Error("a@b.io should be valid")
	}
	for _, e := range []string{"", "nope", "a@b", "a b@c.io"} {
		if emailPattern.MatchString(e) {
			t.Errorf("%q should be rejected", e)
		}
	}
}

func TestOptionsFromForm(t *testing.T) {
	form := wizard.Form{
		FieldApp:      "plausible",
		FieldProvider: "digitalocean",
		FieldRegion:   "fra1",
		FieldSize:     "s-2vcpu-4gb",
		FieldDomain:   "analytics.example.com",
		FieldSSL:      true,
		FieldEmail:    "ops@example.com",
		FieldName:     "plausible-server",
		FieldConfirm:  true,
	}

	opts := OptionsFromForm(form)
	if opts.AppName != "plausible" || opts.ProviderName != "digitalocean" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.Region != "fra1" || opts.Size != "s-2vcpu-4gb" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if !opts.EnableSSL || opts.Email != "ops@example.com" {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.DeployName != "plausible-server" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestDeployFieldsOrder(t *testing.T) {
	want := []string{
		FieldApp, FieldProvider, FieldRegion, FieldSize,
		FieldDomain, FieldSSL, FieldEmail, FieldName, FieldConfirm,
	}
	fields := DeployFields()
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i, f := range fields {
		if f.Name != want[i] {
			t.Fatalf("field %d: got %s, want %s", i, f.Name, want[i])
		}
	}
}

func TestDomainStepUsesAppHint(t *testing.T) {
	apps.Register(&apps.App{Name: "hinted", DomainHint: "hint.example.com"})
	t.Cleanup(func() { delete(apps.Registry, "hinted") })

	if p := domainStep(wizard.Form{FieldApp: "hinted"}); p == nil {
		t.Fatal("domain step should always prompt")
	}
}
