// Command wmiq runs WQL queries against a WMI namespace and prints the
// results as JSON, one object per line (or pretty-printed with --pretty).
//
//	wmiq "SELECT Name, ProcessId FROM Win32_Process"
//	wmiq --notification --timeout 30s "SELECT * FROM __InstanceCreationEvent WITHIN 1 WHERE TargetInstance ISA 'Win32_Process'"
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var progName = "wmiq"

type options struct {
	Computer     string
	Namespace    string
	User         string
	Password     string
	Timeout      time.Duration
	Notification bool
	Pretty       bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   progName + " [flags] query",
	Short: "Run WQL queries and print results as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.Computer, "computer", "", "remote computer to connect to (default local)")
	f.StringVar(&opts.Namespace, "namespace", "", `WMI namespace (default root\cimv2)`)
	f.StringVar(&opts.User, "user", "", "user for remote connections")
	f.StringVar(&opts.Password, "password", "", "password for remote connections")
	f.DurationVar(&opts.Timeout, "timeout", 0, "overall deadline, 0 means none (notification queries run until it expires)")
	f.BoolVar(&opts.Notification, "notification", false, "treat the query as an event query and stream events")
	f.BoolVar(&opts.Pretty, "pretty", false, "indent the JSON output")
}

// parseConfig loads defaults for the connection flags from an optional
// wmiq.{yaml,toml,json} in the working directory or the user config dir.
func parseConfig() (*viper.Viper, error) {
	v := viper.New()

	cfgPath, err := os.UserConfigDir()
	if err != nil {
		return v, err
	}

	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(cfgPath, progName))
	v.SetConfigName(progName)

	if err := v.ReadInConfig(); err != nil {
		return v, err
	}

	return v, nil
}

func applyConfig(v *viper.Viper) {
	f := rootCmd.Flags()
	for _, key := range []string{"computer", "namespace", "user", "password"} {
		if v.IsSet(key) && !f.Changed(key) {
			f.Set(key, v.GetString(key)) //nolint:errcheck
		}
	}
}

func main() {
	v, err := parseConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatal(err)
		}
	} else {
		cobra.OnInitialize(func() { applyConfig(v) })
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wmiq:", err)
		os.Exit(1)
	}
}
