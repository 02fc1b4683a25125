// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internal_device "github.com/rapidaai/voice-capture/api/capture-api/internal/device"
	internal_session "github.com/rapidaai/voice-capture/api/capture-api/internal/session"
	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	internal_upload "github.com/rapidaai/voice-capture/api/capture-api/internal/upload"
	"github.com/rapidaai/voice-capture/pkg/utils"
)

type recordOptions struct {
	device   string
	patient  string
	doctor   string
	index    int
	out      string
	duration time.Duration
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	opts := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one answer and submit it",
		Long:  "Records from a device until interrupted or the duration elapses, uploads the recording and prints the analysis result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return record(cmd.Context(), deps, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.device, "device", internal_device.DefaultDeviceID, `input device, "default" or "file:<path>"`)
	cmd.Flags().StringVar(&opts.patient, "patient", "", "patient identifier")
	cmd.Flags().StringVar(&opts.doctor, "doctor", "", "doctor identifier")
	cmd.Flags().IntVar(&opts.index, "index", -1, "question index, omitted when negative")
	cmd.Flags().StringVar(&opts.out, "out", "", "directory to keep a copy of the recording in")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long, 0 waits for Ctrl-C")

	return cmd
}

func record(ctx context.Context, deps *Dependencies, opts *recordOptions, w io.Writer) error {
	cfg, logger := deps.Config, deps.Logger

	device := internal_device.New(logger, opts.device, internal_device.Config{ChunkInterval: cfg.CaptureConfig.ChunkInterval})
	sessionOpts := []internal_session.Option{
		internal_session.WithMaxDuration(cfg.CaptureConfig.MaxDuration),
		internal_session.WithMaxPayloadBytes(cfg.CaptureConfig.MaxPayloadBytes),
		internal_session.WithUploadTimeout(cfg.UploadConfig.Timeout),
		internal_session.WithBaseName(cfg.CaptureConfig.BaseName),
	}
	if !utils.IsEmpty(cfg.CaptureConfig.IndexField) {
		sessionOpts = append(sessionOpts, internal_session.WithIndexField(cfg.CaptureConfig.IndexField))
	}
	ctrl, err := internal_session.New(logger, device, internal_upload.NewMultipartUploader(logger, cfg.UploadConfig), sessionOpts...)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	events, cancel := ctrl.Subscribe()
	defer cancel()

	snap, err := ctrl.Start(ctx)
	if err != nil {
		return err
	}
	if snap.State == internal_type.StateFailed {
		return snap.Err
	}
	fmt.Fprintf(w, "recording from %s, press Ctrl-C to stop\n", ctrl.DeviceID())

	waitForStop(ctx, events, opts.duration)

	md := internal_type.Metadata{PatientID: opts.patient, DoctorID: opts.doctor}
	if opts.index >= 0 {
		md.QuestionIndex = utils.Ptr(opts.index)
	}
	snap, err = ctrl.Stop(context.WithoutCancel(ctx), md)
	if err != nil {
		return err
	}
	if payload, ok := ctrl.LastPayload(); ok {
		fmt.Fprintf(w, "captured %d bytes in %s\n", len(payload.Data), snap.StoppedAt.Sub(snap.StartedAt).Round(time.Millisecond))
	}

	if opts.out != "" {
		if path, ok := ctrl.DownloadLast(opts.out); ok {
			fmt.Fprintf(w, "saved %s\n", path)
		}
	}

	if snap.State == internal_type.StateFailed {
		return snap.Err
	}
	fmt.Fprintf(w, "result: %s\n", snap.ResultRef)
	return nil
}

// waitForStop blocks until an interrupt, the duration or a capture limit.
func waitForStop(ctx context.Context, events <-chan internal_type.Event, duration time.Duration) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var timeout <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			return
		case ev, ok := <-events:
			if !ok || ev.Type == internal_type.EventLimit {
				return
			}
		}
	}
}
