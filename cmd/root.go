package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/launchkit/launchkit/pkg/apps"
	"github.com/launchkit/launchkit/pkg/cli"
	"github.com/launchkit/launchkit/pkg/providers"
)

var (
	providerName string
	appName      string
	region       string
	size         string
	domain       string
	deployName   string
	sshKeyPath   string
	sshPubKey    string
	enableSSL    bool
	email        string
)

var rootCmd = &cobra.Command{
	Use:   "launchkit",
	Short: "Deploy self-hosted apps to cloud providers",
	Long: `A CLI tool to deploy self-hosted applications like Plausible,
Umami and Uptime Kuma to DigitalOcean, Vultr or Scaleway. Run without
arguments to use the interactive wizard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return apps.Load()
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy an application",
	Long:  `Deploy a self-hosted application to a cloud provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.DeployOptions{
			ProviderName: providerName,
			AppName:      appName,
			Region:       region,
			Size:         size,
			Domain:       domain,
			DeployName:   deployName,
			SSHKeyPath:   sshKeyPath,
			SSHPubKey:    sshPubKey,
			EnableSSL:    enableSSL,
			Email:        email,
		}
		return cli.Deploy(cmd.Context(), opts, logf)
	},
}

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Deploy via the interactive wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd.Context())
	},
}

var listProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available cloud providers",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available providers:")
		for _, name := range providers.Names() {
			fmt.Printf("  - %s: %s\n", name, providers.Registry[name].Description())
		}
	},
}

var listAppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List available applications",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available applications:")
		for _, name := range apps.Names() {
			a := apps.Registry[name]
			specs := a.MinSpecs()
			fmt.Printf("  - %s: %s (min: %d vCPUs, %dMB RAM)\n",
				name, a.Description, specs.CPUs, specs.MemoryMB)
		}
	},
}

var listRegionsCmd = &cobra.Command{
	Use:   "regions [provider]",
	Short: "List available regions for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := providers.Get(args[0])
		if err != nil {
			return err
		}

		regions, err := p.ListRegions(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Available regions for %s:\n", args[0])
		for _, r := range regions {
			fmt.Printf("  - %s: %s\n", r.Slug, r.Name)
		}
		return nil
	},
}

var listSizesCmd = &cobra.Command{
	Use:   "sizes [provider]",
	Short: "List available VM sizes for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := providers.Get(args[0])
		if err != nil {
			return err
		}

		var sizes []providers.Size
		if rs, ok := p.(providers.RegionSizer); ok && region != "" {
			sizes, err = rs.ListSizesForRegion(cmd.Context(), region)
		} else {
			sizes, err = p.ListSizes(cmd.Context())
		}
		if err != nil {
			return err
		}

		fmt.Printf("Available sizes for %s:\n", args[0])
		fmt.Printf("  %-20s %6s %8s %12s\n", "SLUG", "VCPUS", "MEMORY", "PRICE/MO")
		fmt.Println(strings.Repeat("-", 50))
		for _, s := range sizes {
			fmt.Printf("  %-20s %6d %6dMB %10.2f$\n",
				s.Slug, s.VCPUs, s.MemoryMB, s.PriceMonthly)
		}
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [server-id]",
	Short: "Destroy a deployed server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := providers.Get(providerName)
		if err != nil {
			return err
		}
		return p.DestroyServer(cmd.Context(), args[0])
	},
}

func init() {
	deployCmd.Flags().StringVarP(&providerName, "provider", "p", "", "Cloud provider (digitalocean, vultr, scaleway)")
	deployCmd.Flags().StringVarP(&appName, "app", "a", "", "Application to deploy")
	deployCmd.Flags().StringVarP(&region, "region", "r", "", "Region/datacenter")
	deployCmd.Flags().StringVarP(&size, "size", "s", "", "VM size (optional, will use app minimum)")
	deployCmd.Flags().StringVarP(&domain, "domain", "d", "", "Domain name for the app")
	deployCmd.Flags().StringVar(&deployName, "name", "", "Server name (defaults to <app>-server)")
	deployCmd.Flags().StringVar(&sshKeyPath, "ssh-key", "", "Path to SSH private key")
	deployCmd.Flags().StringVar(&sshPubKey, "ssh-pub", "", "Path to SSH public key")
	deployCmd.Flags().BoolVar(&enableSSL, "ssl", false, "Enable Let's Encrypt SSL")
	deployCmd.Flags().StringVar(&email, "email", "", "Email for Let's Encrypt")

	deployCmd.MarkFlagRequired("provider")
	deployCmd.MarkFlagRequired("app")

	listSizesCmd.Flags().StringVarP(&region, "region", "r", "", "Filter sizes by region")

	destroyCmd.Flags().StringVarP(&providerName, "provider", "p", "", "Cloud provider")
	destroyCmd.MarkFlagRequired("provider")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(listProvidersCmd)
	rootCmd.AddCommand(listAppsCmd)
	rootCmd.AddCommand(listRegionsCmd)
	rootCmd.AddCommand(listSizesCmd)
	rootCmd.AddCommand(destroyCmd)
}

// Execute runs the command tree. A bare invocation starts the wizard.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) == 1 {
		if err := apps.Load(); err != nil {
			return err
		}
		return runWizard(ctx)
	}
	return rootCmd.ExecuteContext(ctx)
}

func runWizard(ctx context.Context) error {
	opts, ok := cli.RunDeployWizard(ctx)
	if !ok {
		fmt.Println("Deployment cancelled.")
		return nil
	}
	return cli.Deploy(ctx, opts, logf)
}

func logf(format string, args ...any) {
	fmt.Printf(format, args...)
}
