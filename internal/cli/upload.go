// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Upload limits mirror the backend's ingestion rules so bad files are
// rejected before any bytes move.
const maxUploadBytes = 20 << 20

var allowedUploadExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".pptx": true,
	".ppt":  true,
	".txt":  true,
	".md":   true,
	".xlsx": true,
}

var reindexFolder string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents to the knowledge base (admin)",
	Long: `Upload sends documents to the backend for chunking and indexing.
Accepted types: pdf, docx, doc, pptx, ppt, txt, md, xlsx. Files over
20 MB are rejected locally.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireAdmin(); err != nil {
			return err
		}

		for _, path := range args {
			if err := validateUpload(path); err != nil {
				return err
			}
		}

		results, err := app.client.Upload(cmd.Context(), args)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%s: %d chunks added\n", r.File, r.ChunksAdded)
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the backend document index (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.requireAdmin(); err != nil {
			return err
		}

		result, err := app.client.Reindex(cmd.Context(), reindexFolder)
		if err != nil {
			return err
		}
		if result.ChunksIndexed < 0 {
			fmt.Printf("Reindex of %s queued in the background.\n", result.Folder)
			return nil
		}
		fmt.Printf("Reindexed %s: %d chunks\n", result.Folder, result.ChunksIndexed)
		return nil
	},
}

// validateUpload checks extension and size before the multipart request
// is built.
func validateUpload(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedUploadExts[ext] {
		return fmt.Errorf("%s: unsupported file type %q", path, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: is a directory", path)
	}
	if info.Size() > maxUploadBytes {
		return fmt.Errorf("%s: %d bytes exceeds the 20 MB limit", path, info.Size())
	}
	return nil
}

func init() {
	reindexCmd.Flags().StringVar(&reindexFolder, "folder", "", "Server-side folder to reindex (default: configured docs folder)")
	rootCmd.AddCommand(uploadCmd, reindexCmd)
}
