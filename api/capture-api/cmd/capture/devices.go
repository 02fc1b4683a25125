// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	internal_device "github.com/rapidaai/voice-capture/api/capture-api/internal/device"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := internal_device.ListDevices(deps.Logger)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDEFAULT")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", info.ID, info.Name, info.IsDefault)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nconfigured: %v\n", deps.Config.CaptureConfig.Devices)
			return nil
		},
	}
	return cmd
}
