package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanobanan/banana/config"
)

func init() {
	resetConfigCmd.Flags().Bool("force", false, "Skip confirmation")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(getConfigCmd)
	configCmd.AddCommand(setConfigCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(resetConfigCmd)
	RootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"c"},
	Short:   "View or modify configuration",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all settings",
	RunE: func(_ *cobra.Command, _ []string) error {
		for _, key := range config.Keys() {
			value, _ := cfg.Get(key)
			fmt.Printf("%s = %s\n", key, value)
		}
		return nil
	},
}

var getConfigCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		value, ok := cfg.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown config key: %s", args[0])
		}
		fmt.Println(value)
		return nil
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting and save the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Println(cfg.Path())
		return nil
	},
}

var resetConfigCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			return fmt.Errorf("this will reset all settings; use --force to confirm")
		}

		path := cfg.Path()
		*cfg = *config.Default()
		cfg.SetPath(path)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println("Configuration reset to defaults")
		return nil
	},
}
