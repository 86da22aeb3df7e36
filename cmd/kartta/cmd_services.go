package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/providers"
)

var servicesProvider string

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the service tags each provider can extract",
	Long: `List every service tag the registered providers know how to extract.
Tags from this list go under 'services:' in the config file.

Listing works offline; no cloud credentials are needed.`,
	Example: `  kartta services                  # All providers
  kartta services --provider gcp   # One provider`,
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)

	servicesCmd.Flags().StringVar(&servicesProvider, "provider", "", "Show services for one provider only")
}

func runServices(cmd *cobra.Command, args []string) error {
	names := providers.ListProviders()
	if servicesProvider != "" {
		if _, ok := providers.Catalog(servicesProvider); !ok {
			return fmt.Errorf("unknown provider %q", servicesProvider)
		}
		names = []string{servicesProvider}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PROVIDER\tSERVICE\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "--------\t-------\t-----------")

	for _, name := range names {
		services, _ := providers.Catalog(name)
		for _, svc := range services {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, svc.Tag, svc.Description)
		}
	}

	return w.Flush()
}
