package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devwiki/wikitools/internal/config"
	"github.com/devwiki/wikitools/internal/geo"
	"github.com/devwiki/wikitools/internal/lookup"
)

var lookupJSON bool

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up IP addresses, accounts and page creators",
}

var lookupIPCmd = &cobra.Command{
	Use:   "ip <address>",
	Short: "Geolocate an anonymous editor's IP address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := geo.New(geo.WithBaseURL(cfg.Geo.URL), geo.WithLogger(logger))
		loc, err := client.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(loc)
		}
		fmt.Printf("IP:       %s\n", loc.Query)
		fmt.Printf("ISP:      %s\n", loc.ISP)
		if loc.Org != "" {
			fmt.Printf("Org:      %s\n", loc.Org)
		}
		fmt.Printf("City:     %s\n", loc.City)
		fmt.Printf("Region:   %s\n", loc.Region)
		fmt.Printf("Country:  %s\n", loc.Country)
		return nil
	},
}

var lookupAgeCmd = &cobra.Command{
	Use:   "age <user>",
	Short: "Show when an account registered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := lookupService(cmd)
		if err != nil {
			return err
		}
		age, err := svc.AccountAge(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(age)
		}
		fmt.Printf("%s registered on %s (%d days ago)\n",
			age.User, age.Registered.Local().Format(time.DateTime), age.Days())
		return nil
	},
}

var lookupCreatorCmd = &cobra.Command{
	Use:   "creator <title>",
	Short: "Show who created a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := lookupService(cmd)
		if err != nil {
			return err
		}
		c, err := svc.PageCreator(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(c)
		}
		who := c.User
		if c.Anonymous() {
			who += " (anonymous)"
		}
		fmt.Printf("%s was created by %s on %s\n", c.Title, who, c.Timestamp.Local().Format(time.DateTime))
		return nil
	},
}

var lookupUsernameCmd = &cobra.Command{
	Use:   "username <name>",
	Short: "Check whether a username can still be registered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := lookupService(cmd)
		if err != nil {
			return err
		}
		res, err := svc.UsernameAvailable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if lookupJSON {
			return printJSON(res)
		}
		if res.Available {
			fmt.Printf("%s is available\n", res.Name)
		} else {
			fmt.Printf("%s is taken\n", res.Name)
		}
		return nil
	},
}

// lookupService builds an anonymous lookup service. Reads need no login.
func lookupService(cmd *cobra.Command) (*lookup.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newLookupService(cmd, cfg, false)
}

func newLookupService(cmd *cobra.Command, cfg *config.Config, login bool) (*lookup.Service, error) {
	client, err := newClient(cmd.Context(), cfg, login)
	if err != nil {
		return nil, err
	}
	return lookup.New(client, titleValidator(cmd.Context(), cfg, client), logger), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	lookupCmd.PersistentFlags().BoolVar(&lookupJSON, "json", false, "print the result as JSON")
	lookupCmd.AddCommand(lookupIPCmd, lookupAgeCmd, lookupCreatorCmd, lookupUsernameCmd)
	rootCmd.AddCommand(lookupCmd)
}
