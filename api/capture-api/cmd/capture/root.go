// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"github.com/spf13/cobra"

	"github.com/rapidaai/voice-capture/config"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

type Dependencies struct {
	Config *config.AppConfig
	Logger commons.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "capture",
		Short:         "Record answers from a microphone and submit them for analysis",
		Long:          "Captures audio from an input device, uploads the recording as multipart form data and keeps the result history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = deps.Config.Version

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))

	return rootCmd
}
