// Package ctl implements the domainctl admin CLI: pricing imports, TLD
// toggles, and provider connectivity checks against a running server.
package ctl

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"domainhub/pkg/api"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:   "domainctl",
	Short: "Admin tool for the domainhub registrar service",
}

func Execute() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("ADMIN_TOKEN"), "Admin token (defaults to ADMIN_TOKEN env)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(pricingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func client() *Client {
	return NewClient(serverURL, token)
}

var importCmd = &cobra.Command{
	Use:   "import [provider]",
	Short: "Import the full TLD price list from a provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/admin/pricing/import"
		if len(args) == 1 {
			path += "?provider=" + args[0]
		}
		var result api.ImportResponse
		if err := client().do("POST", path, nil, &result); err != nil {
			return err
		}
		fmt.Printf("Imported %d TLDs from %s at %s\n", result.Count, result.Provider, result.Timestamp)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh [provider]",
	Short: "Refresh cached pricing from a provider",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/admin/pricing/refresh"
		if len(args) == 1 {
			path += "?provider=" + args[0]
		}
		var result api.ImportResponse
		if err := client().do("POST", path, nil, &result); err != nil {
			return err
		}
		fmt.Printf("Refreshed %d TLDs from %s\n", result.Count, result.Provider)
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test <provider>",
	Short: "Verify provider credentials with a harmless API call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result api.MessageResponse
		if err := client().do("POST", "/api/v1/admin/providers/"+args[0]+"/test", nil, &result); err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Inspect and manage the TLD pricing cache",
}

func init() {
	pricingCmd.AddCommand(pricingListCmd)
	pricingCmd.AddCommand(pricingEnableCmd)
	pricingCmd.AddCommand(pricingDisableCmd)
}

var pricingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached TLD prices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []api.PricingEntry
		if err := client().do("GET", "/api/v1/admin/pricing", nil, &entries); err != nil {
			return err
		}
		fmt.Printf("%-12s %-4s %10s %10s %10s  %s\n", "TLD", "CUR", "REGISTER", "RENEW", "TRANSFER", "ENABLED")
		for _, e := range entries {
			fmt.Printf("%-12s %-4s %10s %10s %10s  %v\n",
				e.TLD, e.Currency, e.Registration, e.Renewal, e.Transfer, e.Enabled)
		}
		return nil
	},
}

var pricingEnableCmd = &cobra.Command{
	Use:   "enable <tld>",
	Short: "Offer a TLD for sale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTLD(args[0], true)
	},
}

var pricingDisableCmd = &cobra.Command{
	Use:   "disable <tld>",
	Short: "Stop offering a TLD (its cached prices are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTLD(args[0], false)
	},
}

func setTLD(tld string, enabled bool) error {
	var result api.MessageResponse
	err := client().do("PUT", "/api/v1/admin/pricing/"+tld, api.ToggleRequest{Enabled: enabled}, &result)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}
