// Command importer runs report imports from the shell against the configured store.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"reports-service/internal/config"
	"reports-service/internal/importer"
	"reports-service/internal/models"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type storeOpener func(cfg *config.Config) (*config.Stores, error)

type cli struct {
	out    io.Writer
	open   storeOpener
	logger *logrus.Logger

	file     string
	strategy string
}

func newRootCmd(out io.Writer, open storeOpener, logger *logrus.Logger) *cobra.Command {
	c := &cli{out: out, open: open, logger: logger}

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import market-research reports from CSV or Excel files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Import a file into the catalog",
		Long:  "Import a CSV/XLSX file into the report catalog. Existing reports are matched by report code, slug or title and handled per --strategy.",
		RunE:  c.runImport,
	}
	runCmd.Flags().StringVarP(&c.file, "file", "f", "", "CSV, XLSX or XLS file to import (required)")
	runCmd.Flags().StringVarP(&c.strategy, "strategy", "s", string(models.StrategyUpdate), "Duplicate handling: update, skip or create")
	runCmd.MarkFlagRequired("file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "List rows that already exist in the catalog without writing",
		RunE:  c.runCheck,
	}
	checkCmd.Flags().StringVarP(&c.file, "file", "f", "", "CSV, XLSX or XLS file to check (required)")
	checkCmd.MarkFlagRequired("file")

	root.AddCommand(runCmd, checkCmd)
	return root
}

func (c *cli) pipeline() (*importer.Pipeline, func(), error) {
	cfg := config.Load()
	stores, err := c.open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	log := logrus.NewEntry(c.logger).WithField("service", "importer-cli")
	return importer.NewPipeline(stores.Catalog, stores.Taxonomy, nil, cfg.ImportOptions(), log), stores.Close, nil
}

func (c *cli) runImport(cmd *cobra.Command, _ []string) error {
	strategy, err := models.ParseDuplicateStrategy(c.strategy)
	if err != nil {
		return err
	}
	sheet, err := importer.LoadFile(c.file, "")
	if err != nil {
		return err
	}

	p, closeStores, err := c.pipeline()
	if err != nil {
		return err
	}
	defer closeStores()

	result, err := p.Run(cmd.Context(), sheet, strategy)
	if result != nil {
		if encErr := c.print(result); encErr != nil {
			return encErr
		}
	}
	if errors.Is(err, importer.ErrNoValidRows) {
		return fmt.Errorf("%s: %w", c.file, err)
	}
	return err
}

func (c *cli) runCheck(cmd *cobra.Command, _ []string) error {
	sheet, err := importer.LoadFile(c.file, "")
	if err != nil {
		return err
	}

	p, closeStores, err := c.pipeline()
	if err != nil {
		return err
	}
	defer closeStores()

	result, err := p.CheckDuplicates(cmd.Context(), sheet)
	if err != nil {
		return err
	}
	return c.print(result)
}

func (c *cli) print(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := newRootCmd(os.Stdout, config.OpenStores, logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
