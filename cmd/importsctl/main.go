// importsctl is the operator CLI for the imports API.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"holdings-imports-backend/internal/client"
	"holdings-imports-backend/internal/filterstate"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the resolved configuration shared by every subcommand.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "importsctl",
		Short:         "Browse mutual-fund holding imports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default: ~/.config/importsctl/config.yaml)")
	root.PersistentFlags().String("api-url", "", "API base URL (env IMPORTS_API_URL)")
	root.PersistentFlags().String("token-file", "", "session token file (env IMPORTS_TOKEN_FILE)")
	root.PersistentFlags().Duration("debounce", 0, "filter debounce delay for browse (env IMPORTS_DEBOUNCE)")

	root.AddCommand(a.loginCmd(), a.logoutCmd(), a.listCmd(), a.ratingsCmd(), a.browseCmd())
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	v := a.v
	v.SetDefault("api_url", "http://localhost:5000")
	v.SetDefault("token_file", filepath.Join(configDir(), "session.json"))
	v.SetDefault("debounce", filterstate.DefaultDebounce)

	v.SetEnvPrefix("IMPORTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Flags()
	for key, flag := range map[string]string{"api_url": "api-url", "token_file": "token-file", "debounce": "debounce"} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (a *app) debounce() time.Duration { return a.v.GetDuration("debounce") }

func (a *app) client(opts ...client.Option) *client.Client {
	opts = append([]client.Option{client.WithTokenStore(client.NewFileTokenStore(a.v.GetString("token_file")))}, opts...)
	return client.New(a.v.GetString("api_url"), opts...)
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "importsctl")
	}
	return ".importsctl"
}
