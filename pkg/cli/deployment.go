// Package cli wires the wizard, providers and app catalog into the
// deploy pipeline behind the command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/launchkit/launchkit/pkg/apps"
	"github.com/launchkit/launchkit/pkg/providers"
)

// DeployOptions holds all deployment configuration.
type DeployOptions struct {
	ProviderName string `json:"provider"`
	AppName      string `json:"app"`
	Region       string `json:"region"`
	Size         string `json:"size"`
	Domain       string `json:"domain"`
	DeployName   string `json:"deploy_name"`
	SSHKeyPath   string `json:"ssh_key_path"`
	SSHPubKey    string `json:"ssh_pub_key"`
	EnableSSL    bool   `json:"enable_ssl"`
	Email        string `json:"email"`
}

// Deploy executes a deployment with the given options.
func Deploy(ctx context.Context, opts DeployOptions, logf func(string, ...any)) error {
	provider, err := providers.Get(opts.ProviderName)
	if err != nil {
		return fmt.Errorf("provider error: %w", err)
	}

	app, err := apps.Get(opts.AppName)
	if err != nil {
		return fmt.Errorf("app error: %w", err)
	}

	sshPrivate, sshPublic, err := LoadSSHKeys(opts.SSHKeyPath, opts.SSHPubKey)
	if err != nil {
		return fmt.Errorf("SSH key error: %w", err)
	}

	// Use the app minimum when no size was chosen.
	vmSize := opts.Size
	if vmSize == "" {
		vmSize, err = provider.GetSizeForSpecs(ctx, app.MinSpecs())
		if err != nil {
			return fmt.Errorf("could not find suitable size: %w", err)
		}
	}

	vmRegion := opts.Region
	if vmRegion == "" {
		vmRegion = provider.DefaultRegion()
	}

	logf("🚀 Deploying %s to %s\n", opts.AppName, opts.ProviderName)
	logf("   Region: %s\n", vmRegion)
	logf("   Size: %s\n", vmSize)
	if opts.Domain != "" {
		logf("   Domain: %s\n", opts.Domain)
	}
	logf("\n")

	serverName := opts.DeployName
	if serverName == "" {
		serverName = fmt.Sprintf("%s-server", opts.AppName)
	}
	config := &providers.DeployConfig{
		Name:          serverName,
		Region:        vmRegion,
		Size:          vmSize,
		SSHPublicKey:  sshPublic,
		SSHPrivateKey: sshPrivate,
		Domain:        opts.Domain,
		Tags:          []string{opts.AppName, "launchkit"},
	}

	logf("⏳ Creating server...\n")
	server, err := provider.CreateServer(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	logf("✅ Server created: %s (ID: %s)\n", server.Name, server.ID)

	logf("⏳ Waiting for server to be ready...\n")
	server, err = provider.WaitForServer(ctx, server.ID)
	if err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}
	logf("✅ Server ready with IP: %s\n", server.IP)

	logf("⏳ Waiting for SSH...\n")
	if err := providers.WaitForSSH(ctx, server.IP, 22); err != nil {
		return fmt.Errorf("SSH not ready: %w", err)
	}
	logf("✅ SSH ready\n")

	logf("⏳ Installing %s (this may take a while)...\n", opts.AppName)
	installConfig := &apps.InstallConfig{
		Domain:    opts.Domain,
		ServerIP:  server.IP,
		SSHKey:    sshPrivate,
		SSHUser:   "root",
		EnableSSL: opts.EnableSSL,
		Email:     opts.Email,
		Logger:    logf,
	}
	if err := app.Install(ctx, installConfig); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}
	logf("✅ %s installed\n", opts.AppName)

	if opts.EnableSSL && opts.Email != "" {
		logf("⏳ Setting up SSL...\n")
		if err := app.SetupSSL(ctx, installConfig); err != nil {
			logf("⚠️  SSL setup failed: %v\n", err)
		} else {
			logf("✅ SSL configured\n")
		}
	}

	logf("\n")
	logf("🎉 Deployment Complete!\n")
	if opts.Domain != "" {
		if opts.EnableSSL {
			logf("🔗 URL: https://%s\n", opts.Domain)
		} else {
			logf("🔗 URL: http://%s\n", opts.Domain)
		}
		logf("ℹ️  Point an A record for %s at %s\n", opts.Domain, server.IP)
	} else {
		logf("🔗 Server IP: %s\n", server.IP)
	}
	logf("🔑 SSH: ssh root@%s\n", server.IP)
	app.PrintSummary(logf, server.IP, opts.Domain)

	return nil
}

// LoadSSHKeys reads the key pair from the given paths, falling back to
// the usual ~/.ssh locations.
func LoadSSHKeys(privatePath, publicPath string) (privateKey, publicKey string, err error) {
	if privatePath != "" {
		data, err := os.ReadFile(privatePath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read private key: %w", err)
		}
		privateKey = string(data)
	}
	if publicPath != "" {
		data, err := os.ReadFile(publicPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read public key: %w", err)
		}
		publicKey = string(data)
	}

	home, _ := os.UserHomeDir()
	if privateKey == "" {
		for _, p := range []string{home + "/.ssh/id_rsa", home + "/.ssh/id_ed25519"} {
			if data, err := os.ReadFile(p); err == nil {
				privateKey = string(data)
				break
			}
		}
	}
	if publicKey == "" {
		for _, p := range []string{home + "/.ssh/id_rsa.pub", home + "/.ssh/id_ed25519.pub"} {
			if data, err := os.ReadFile(p); err == nil {
				publicKey = string(data)
				break
			}
		}
	}

	if privateKey == "" || publicKey == "" {
		return "", "", fmt.Errorf("SSH keys not found. Use --ssh-key and --ssh-pub flags")
	}
	return privateKey, publicKey, nil
}
