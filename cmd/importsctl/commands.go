package main

import (
	"errors"
	"fmt"
	"strings"

	"holdings-imports-backend/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errSessionExpired = errors.New("session expired, run `importsctl login`")

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" {
				email = a.v.GetString("email")
			}
			if password == "" {
				password = a.v.GetString("password")
			}
			if _, err := a.client().Login(cmd.Context(), email, password); err != nil {
				return errors.New(client.UserMessage(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Login successful")
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email (env IMPORTS_EMAIL)")
	cmd.Flags().String("password", "", "account password (env IMPORTS_PASSWORD)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) ratingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "List selectable credit ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ratings, err := a.client().Ratings(cmd.Context())
			if client.IsAbort(err) {
				return errSessionExpired
			}
			if err != nil {
				return errors.New(client.UserMessage(err))
			}
			for _, r := range ratings {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch one page of imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := bundleFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			page, err := a.client().FetchImports(cmd.Context(), b)
			if client.IsAbort(err) {
				return errSessionExpired
			}
			if err != nil {
				return errors.New(client.UserMessage(err))
			}
			p, _ := b.PageLimit()
			renderPage(cmd.OutOrStdout(), page, p)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("page", 1, "page number")
	f.Int("limit", client.DefaultLimit, "page size (max 200)")
	f.String("scheme", "", "scheme name contains")
	f.String("instrument", "", "instrument name contains")
	f.String("isin", "", "ISIN contains")
	f.StringSlice("rating", nil, "rating prefix, repeatable")
	f.String("from", "", "report date from (yyyy-mm-dd)")
	f.String("to", "", "report date to (yyyy-mm-dd)")
	f.String("modified-from", "", "modified on or after (yyyy-mm-dd)")
	f.String("modified-to", "", "modified on or before (yyyy-mm-dd)")
	for _, n := range numberFlags {
		f.Float64(n.flag, 0, n.usage)
	}
	return cmd
}

var numberFlags = []struct {
	flag  string
	usage string
	field func(*client.FilterBundle) **float64
}{
	{"quantity-min", "minimum quantity", func(b *client.FilterBundle) **float64 { return &b.QuantityMin }},
	{"quantity-max", "maximum quantity", func(b *client.FilterBundle) **float64 { return &b.QuantityMax }},
	{"pct-to-nav-min", "minimum % to NAV", func(b *client.FilterBundle) **float64 { return &b.PctToNavMin }},
	{"pct-to-nav-max", "maximum % to NAV", func(b *client.FilterBundle) **float64 { return &b.PctToNavMax }},
	{"ytm-min", "minimum YTM", func(b *client.FilterBundle) **float64 { return &b.YTMMin }},
	{"ytm-max", "maximum YTM", func(b *client.FilterBundle) **float64 { return &b.YTMMax }},
	{"mv-min", "minimum market value (absolute)", func(b *client.FilterBundle) **float64 { return &b.MVMin }},
	{"mv-max", "maximum market value (absolute)", func(b *client.FilterBundle) **float64 { return &b.MVMax }},
}

// bundleFromFlags only sets numeric bounds whose flag was given, so an
// explicit 0 is kept.
func bundleFromFlags(f *pflag.FlagSet) (client.FilterBundle, error) {
	var b client.FilterBundle
	var err error
	if b.Page, err = f.GetInt("page"); err != nil {
		return b, err
	}
	if b.Limit, err = f.GetInt("limit"); err != nil {
		return b, err
	}
	texts := map[string]*string{
		"scheme": &b.Scheme, "instrument": &b.Instrument, "isin": &b.ISIN,
		"from": &b.From, "to": &b.To,
		"modified-from": &b.ModifiedFrom, "modified-to": &b.ModifiedTo,
	}
	for name, dst := range texts {
		if *dst, err = f.GetString(name); err != nil {
			return b, err
		}
	}
	ratings, err := f.GetStringSlice("rating")
	if err != nil {
		return b, err
	}
	for _, r := range ratings {
		if r = strings.TrimSpace(r); r != "" {
			b.Ratings = append(b.Ratings, r)
		}
	}
	for _, n := range numberFlags {
		if !f.Changed(n.flag) {
			continue
		}
		v, err := f.GetFloat64(n.flag)
		if err != nil {
			return b, err
		}
		*n.field(&b) = &v
	}
	return b, nil
}
