package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ninthcircle/diceroller/internal/config"
	dtls "github.com/ninthcircle/diceroller/internal/tls"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database path: %s\n", cfg.Database.Path)
	fmt.Printf("  Table prefix: %s\n", cfg.Database.TablePrefix)
	fmt.Printf("  Options backend: %s\n", cfg.Options.Backend)
	fmt.Printf("  Dice faces: %v\n", cfg.Dice.Faces)
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: %s%s\n", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}

	if cfg.Server.TLS.Enabled {
		printTLSStatus(cmd.Context(), cfg.Server.TLS)
	}

	return nil
}

func printTLSStatus(ctx context.Context, cfg config.TLSConfig) {
	if cfg.ACME.Enabled {
		fmt.Printf("  TLS: ACME for %s\n", strings.Join(cfg.ACME.Domains, ", "))
		m := dtls.NewACMEManager(cfg.ACME.Email, cfg.ACME.Domains, cfg.ACME.CacheDir)
		cached := m.CachedCertificates(ctx)
		for _, domain := range m.Domains() {
			if info, ok := cached[domain]; ok {
				fmt.Printf("    %s: cached, expires %s (%d days left)\n", domain, info.NotAfter.Format("2006-01-02"), info.DaysLeft)
			} else {
				fmt.Printf("    %s: not obtained yet\n", domain)
			}
		}
		return
	}

	info, err := dtls.GetCertificateInfo(cfg.CertFile)
	if err != nil {
		fmt.Printf("  TLS: %v\n", err)
		return
	}
	fmt.Printf("  TLS: %s issued by %s, expires %s (%d days left)\n",
		info.Subject, info.Issuer, info.NotAfter.Format("2006-01-02"), info.DaysLeft)
}
