// Wishbot - shared wishlist coordinator bot
// License: MIT
//
// Copyright (c) 2026 Wishbot contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal"
	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal/auth"
	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal/serve"
	"github.com/tinyland-inc/wishbot/cmd/wishbot/internal/version"
)

func NewWishbotCommand() *cobra.Command {
	short := fmt.Sprintf("%s wishbot - Shared Wishlist Bot v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "wishbot",
		Short:   short,
		Example: "wishbot serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		auth.NewAuthCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewWishbotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
