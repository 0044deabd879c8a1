package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-core/internal/config"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaName       = "argo-config.json"
	sampleConfigName = "argo-config.yaml"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write the config JSON schema and a sample config",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Output `DIR`",
				Value: "./config",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			schemaPath, samplePath, written, err := generateFiles(cmd.String("dir"))
			if err != nil {
				return err
			}

			out := outWriter(cmd)
			if written {
				fmt.Fprintf(out, "Sample config successfully generated at %s\n", samplePath)
			}

			fmt.Fprintf(out, "Schema successfully generated at %s\n", schemaPath)

			return nil
		},
	}
}

// generateFiles writes the schema to dir, always replacing it, and a
// sample config of the defaults unless one already exists. written
// reports whether the sample was created.
func generateFiles(dir string) (schemaPath string, samplePath string, written bool, err error) {
	schemaPath = filepath.Join(dir, schemaName)
	samplePath = filepath.Join(dir, sampleConfigName)

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", "", false, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", false, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0o644); err != nil {
		return "", "", false, fmt.Errorf("failed to write schema: %w", err)
	}

	if _, err := os.Stat(samplePath); !errors.Is(err, fs.ErrNotExist) {
		return schemaPath, samplePath, false, err
	}

	yamlBytes, err := yaml.Marshal(config.Default())
	if err != nil {
		return "", "", false, fmt.Errorf("failed to marshal sample config: %w", err)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaName+"\n"), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0o644); err != nil {
		return "", "", false, fmt.Errorf("failed to write sample config: %w", err)
	}

	return schemaPath, samplePath, true, nil
}
