package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/next-dataset/internal/service/dataset"
	"github.com/ashwinyue/next-dataset/internal/service/types"
)

func newImportCmd(cfgFile *string) *cobra.Command {
	var req dataset.ImportRequest

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one JSONL dataset",
		Example: `  next-dataset import --name llava --root /data/llava --file /data/llava/train.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.services.Dataset.Import(cmd.Context(), &req, progressPrinter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "dataset name")
	cmd.Flags().StringVar(&req.RootPath, "root", "", "media root directory")
	cmd.Flags().StringVar(&req.FilePath, "file", "", "JSONL file to import")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("root")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newBatchImportCmd(cfgFile *string) *cobra.Command {
	var (
		batchFile string
		groupName string
	)

	cmd := &cobra.Command{
		Use:   "batch-import",
		Short: "Import every dataset listed in a batch config file",
		Long: `The batch config is a JSON object mapping dataset names to
{"root": "<media root>", "annotation": "<jsonl path>"}. Entries are imported in
name order; a failing entry does not stop the others. With --group, a dataset
group is created from the imported datasets when every entry succeeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			datasets, err := dataset.LoadBatchConfig(batchFile)
			if err != nil {
				return err
			}

			a, err := newApp(*cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.services.Dataset.BatchImport(cmd.Context(), &dataset.BatchImportRequest{
				Datasets:  datasets,
				GroupName: groupName,
			}, progressPrinter(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("%d of %d datasets failed", len(result.Failures), result.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&batchFile, "batch", "", "batch config JSON file")
	cmd.Flags().StringVar(&groupName, "group", "", "create a group from the imported datasets")
	_ = cmd.MarkFlagRequired("batch")
	return cmd
}

func progressPrinter(w io.Writer) types.ProgressFunc {
	return func(stage string, fraction float64) {
		fmt.Fprintf(w, "[%3.0f%%] %s\n", fraction*100, stage)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
