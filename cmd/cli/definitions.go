package cli

import (
	"fmt"

	"scriptify/internal/automation"
	"scriptify/internal/scripts"

	"github.com/spf13/cobra"
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List the built-in scripts and their fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := automation.NewScriptRegistry()
		if err := scripts.RegisterScripts(reg, scripts.Deps{}); err != nil {
			return err
		}
		for _, name := range reg.All() {
			def, err := reg.Get(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s (v%d)\n", def.Name(), def.Version())
			if forced := def.ForcedTriggerable(); forced != nil {
				fmt.Printf("  trigger: %s (forced)\n", forced.Triggerable)
			}
			fmt.Printf("  placeholders: %v\n", def.Placeholders())
			for _, f := range def.Fields() {
				fmt.Printf("  field: %s (%s)\n", f.Name, f.Component)
			}
		}
		return nil
	},
}

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "List the built-in triggers and their fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := automation.NewTriggerRegistry()
		if err := scripts.RegisterTriggers(reg); err != nil {
			return err
		}
		for _, name := range reg.All() {
			def, err := reg.Get(name)
			if err != nil {
				return err
			}
			fmt.Println(def.Name())
			for _, f := range def.Fields() {
				fmt.Printf("  field: %s (%s)\n", f.Name, f.Component)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scriptsCmd)
	rootCmd.AddCommand(triggersCmd)
}
