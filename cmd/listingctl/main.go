package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"listingfilter/internal/app"
	"listingfilter/internal/config"
	"listingfilter/internal/logging"
	"listingfilter/internal/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "listingctl",
		Short:         "Filter the listing dataset with free-text conditions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	build := func(cmd *cobra.Command) (*app.Services, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger := logging.Discard()
		if verbose {
			logger = logging.New(cfg.Logging, cmd.ErrOrStderr())
		}
		return app.Build(cmd.Context(), cfg, logger)
	}

	root.AddCommand(&cobra.Command{
		Use:   "listings",
		Short: "Print every listing in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := build(cmd)
			if err != nil {
				return err
			}
			return printListings(cmd.OutOrStdout(), services.Search.Listings())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "search <query...>",
		Short: "Print the listings matching a free-text condition",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := build(cmd)
			if err != nil {
				return err
			}
			resp, err := services.Search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if resp.ReplyError != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", resp.ReplyError)
			}
			return printListings(cmd.OutOrStdout(), resp.Results)
		},
	})

	return root
}

func printListings(w io.Writer, listings []model.Listing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tPRICE\tROOMS\tIMAGE")
	for _, l := range listings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.Address, l.Price, l.Rooms, l.Image)
	}
	fmt.Fprintf(tw, "\n%d listing(s)\n", len(listings))
	return tw.Flush()
}
