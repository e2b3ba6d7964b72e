package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pyscope/internal/analyzer"
	"pyscope/internal/astcache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the on-disk AST cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := astcache.Open(analyzer.Product)
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return fmt.Errorf("failed to drop cache: %w", err)
		}
		quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
		if !quiet {
			fmt.Printf("dropped AST cache at %s\n", cache.Dir())
		}
		return cache.Close()
	},
}
