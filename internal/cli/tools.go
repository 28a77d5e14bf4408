package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/harun/courier/pkg/capability"
	"github.com/harun/courier/pkg/catalog"
	"github.com/spf13/cobra"
)

var toolsDisconnected bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	Long: `List the tools offered to the model once the capability session is
authenticated, with their required parameters. Use --disconnected to see
what the model is offered before sign-in.`,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsDisconnected, "disconnected", false, "show the tools offered before sign-in")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tools, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	state := capability.Authenticated
	if toolsDisconnected {
		state = capability.Disconnected
	}

	out := cmd.OutOrStdout()
	name := color.New(color.FgCyan, color.Bold)
	for _, tool := range tools.VisibleTools(state) {
		name.Fprint(out, tool.Name)
		if required := requiredParams(tool); len(required) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(required, ", "))
		}
		fmt.Fprintf(out, "\n    %s\n", tool.Description)
	}
	return nil
}

func requiredParams(tool catalog.Descriptor) []string {
	var names []string
	switch req := tool.Parameters["required"].(type) {
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = append(names, req...)
	}
	sort.Strings(names)
	return names
}
