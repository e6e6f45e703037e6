package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memohai/kitchensink/internal/config"
	"github.com/memohai/kitchensink/internal/messaging"
	"github.com/memohai/kitchensink/internal/templates"
)

func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [keyword]",
		Short: "List template keywords, or print the payloads a keyword replies with",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := templates.Load(cfg.Templates.Path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, key := range store.Keys() {
					fmt.Fprintln(out, key)
				}
				return nil
			}
			msgs, ok, err := store.Resolve(args[0], templates.BaseURL(cfg.Server.BaseURL))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no template for %q", args[0])
			}
			payloads, err := messaging.ToSDKMessages(msgs)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(payloads, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
}
