package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"quiz-night-service/internal/config"
	"quiz-night-service/internal/infra/file"
	"quiz-night-service/internal/infra/postgres"
)

// NewImportCmd loads a quiz document from disk into the Postgres library.
func NewImportCmd(configPath *string) *cobra.Command {
	var id, path string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a quiz file and store it in the quiz library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, id, path)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "library id (defaults to the file name)")
	cmd.Flags().StringVar(&path, "file", "", "path to a .json or .yaml quiz document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runImport(ctx context.Context, configPath, id, path string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	quiz, err := file.Decode(path, data)
	if err != nil {
		return err
	}
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	if err := postgres.NewQuizStore(db).SaveQuiz(ctx, id, quiz); err != nil {
		return err
	}
	log.Printf("imported quiz %q (%d questions)", id, len(quiz.Questions))
	return nil
}
