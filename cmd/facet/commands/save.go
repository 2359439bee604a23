package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/facet/errors"
	"github.com/teranos/facet/logger"
	"github.com/teranos/facet/persist"
	"github.com/teranos/facet/txn"
)

// SaveCmd represents the save command
var SaveCmd = &cobra.Command{
	Use:   "save <delta.json>",
	Short: "Apply an edit delta from a JSON file",
	Long: `save — Compile an edit delta and transact it against the partition
databases. Reads the delta from the given file, or from stdin when the
argument is "-".

The result always carries the placeholder mapping; each placeholder maps
to the identity value the entity was persisted under.

Examples:
  facet save delta.json
  cat delta.json | facet save -`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

var saveJSONFlag bool

func init() {
	SaveCmd.Flags().BoolVarP(&saveJSONFlag, "json", "j", false, "Print the save result as JSON")
}

func runSave(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return errors.Wrapf(err, "read delta %s", args[0])
	}

	delta, err := txn.ParseDeltaJSON(data)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	saver := persist.NewSaver(env.cat, env.routes, reconciler, logger.Logger)
	result, err := saver.Save(context.Background(), delta, nil)
	if err != nil {
		return err
	}

	if saveJSONFlag {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, "format result")
		}
		fmt.Println(string(output))
		return nil
	}

	mapping := result[persist.TempIDsKey].(map[string]any)
	pterm.Success.Printf("Delta saved (%d entities)\n", delta.Len())
	if len(mapping) > 0 {
		pterm.Info.Println("Placeholder mapping:")
		for token, value := range mapping {
			pterm.Printf("  %s -> %v\n", token, value)
		}
	}
	return nil
}
