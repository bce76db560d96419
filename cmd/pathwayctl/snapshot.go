package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pathwaycore/internal/blob"
	"pathwaycore/internal/interactors"
	"pathwaycore/internal/snapshot"
)

// snapshotContentType labels encoded snapshots in the blob store.
const snapshotContentType = "application/x-pathway-snapshot"

type importSummary struct {
	Key                   string `json:"key"`
	Size                  int64  `json:"sizeBytes"`
	Species               int    `json:"species"`
	Pathways              int    `json:"pathways"`
	Identifiers           int    `json:"identifiers"`
	InteractorIdentifiers int    `json:"interactorIdentifiers"`
}

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage analysis snapshots",
	}
	cmd.AddCommand(newSnapshotImportCmd(a))
	return cmd
}

func newSnapshotImportCmd(a *app) *cobra.Command {
	var (
		manifestPath    string
		interactorsPath string
		force           bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Build a snapshot from a JSON manifest and store it under the snapshot key",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if interactorsPath == "" {
				interactorsPath = a.cfg.Interactors.SQLitePath
			}
			d, err := a.buildSnapshot(ctx, manifestPath, interactorsPath)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := snapshot.Encode(&buf, d); err != nil {
				return err
			}
			store, err := a.openBlobs(ctx)
			if err != nil {
				return err
			}
			info, err := store.Put(ctx, a.cfg.Snapshot.Key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
				ContentType: snapshotContentType,
				Metadata:    map[string]string{"created_at": d.CreatedAt.Format(time.RFC3339)},
				Overwrite:   force,
			})
			if errors.Is(err, blob.ErrExists) {
				return fmt.Errorf("snapshot %s already stored, use --force to replace it: %w", a.cfg.Snapshot.Key, err)
			}
			if err != nil {
				return fmt.Errorf("store snapshot: %w", err)
			}
			a.logger.Info("snapshot imported", "key", info.Key, "size", info.Size, "pathways", d.PathwayCount())
			return writeJSON(cmd.OutOrStdout(), importSummary{
				Key:                   info.Key,
				Size:                  info.Size,
				Species:               len(d.Hierarchies),
				Pathways:              d.PathwayCount(),
				Identifiers:           d.Entities.Len(),
				InteractorIdentifiers: d.Interactors.Len(),
			})
		}),
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "JSON manifest of species, pathways and entities")
	cmd.Flags().StringVar(&interactorsPath, "interactors", "", "SQLite interactions database (defaults to PATHWAY_INTERACTORS_SQLITE_PATH)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing snapshot")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func (a *app) buildSnapshot(ctx context.Context, manifestPath, interactorsPath string) (*snapshot.Data, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	m, err := snapshot.ReadManifest(f)
	if err != nil {
		return nil, err
	}
	b := snapshot.NewBuilder()
	if err := m.Apply(b); err != nil {
		return nil, fmt.Errorf("apply manifest: %w", err)
	}
	if interactorsPath != "" {
		src, err := interactors.OpenSQLiteSource(interactorsPath)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		index, err := interactors.NewBuilder(a.logger).Build(ctx, b.Entities(), src)
		if err != nil {
			return nil, fmt.Errorf("ingest interactors: %w", err)
		}
		b.SetInteractors(index)
	}
	return b.Build(time.Now())
}
