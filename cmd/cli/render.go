package cli

import (
	"fmt"
	"strings"

	"scriptify/internal/placeholders"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var renderValues []string

var renderCmd = &cobra.Command{
	Use:   "render [template]",
	Short: "Render a placeholder template with the given values",
	Long: `Render substitutes %%NAME%% tokens in the template using the
values given with --set key=value. Report tokens need a running
database and are left as-is here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := map[string]string{}
		for _, kv := range renderValues {
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("invalid --set %q, want key=value", kv)
			}
			values[strings.ToLower(key)] = val
		}
		engine := placeholders.NewEngine(nil, logrus.StandardLogger())
		fmt.Println(engine.Render(cmd.Context(), args[0], values))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringArrayVar(&renderValues, "set", nil, "placeholder value as key=value, repeatable")
	rootCmd.AddCommand(renderCmd)
}
