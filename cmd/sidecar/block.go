package main

import (
	"encoding/json"
	"fmt"

	sidecar "github.com/cordialsys/substrate-sidecar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func cmdBlock() *cobra.Command {
	var eventDocs, extrinsicDocs, noFees bool
	var finalized bool
	cmd := &cobra.Command{
		Use:   "block [blockId]",
		Short: "Fetch one block and print it as JSON",
		Long: "Fetch one block and print it as JSON. The block is named by height,\n" +
			"by 0x-prefixed hash, or by \"head\" (the default).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			_, service, err := newService(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var id sidecar.BlockID
			if len(args) == 0 || args[0] == "head" {
				hash, err := service.HeadHash(ctx, finalized && cfg.Finalizes)
				if err != nil {
					return fmt.Errorf("could not resolve the chain head: %v", err)
				}
				id = sidecar.NewHashID(hash)
			} else {
				id, err = sidecar.ParseBlockID(args[0])
				if err != nil {
					return err
				}
			}

			opts := fetchDefaults(cfg)
			opts.EventDocs = eventDocs
			opts.ExtrinsicDocs = extrinsicDocs
			opts.NoFees = noFees
			opts.CheckFinalized = finalized
			block, err := service.FetchBlock(ctx, id, opts)
			if err != nil {
				return fmt.Errorf("could not fetch block %s: %v", id, err)
			}

			if cfg.Decimals > 0 {
				logPartialFees(block, cfg.Decimals)
			}
			bz, err := json.MarshalIndent(block, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(bz))
			return nil
		},
	}
	cmd.Flags().BoolVar(&eventDocs, "event-docs", false, "Keep runtime documentation on events")
	cmd.Flags().BoolVar(&extrinsicDocs, "extrinsic-docs", false, "Keep runtime documentation on calls")
	cmd.Flags().BoolVar(&noFees, "no-fees", false, "Skip partial-fee computation")
	cmd.Flags().BoolVar(&finalized, "finalized", true, "Check finality; for head, resolve the finalized head")
	return cmd
}

func logPartialFees(block *sidecar.Block, decimals int32) {
	for i, ext := range block.Extrinsics {
		if ext.Info == nil || ext.Info.PartialFee == nil {
			continue
		}
		logrus.WithFields(logrus.Fields{
			"extrinsic": i,
			"fee":       ext.Info.PartialFee.ToHuman(decimals).String(),
		}).Info("partial fee")
	}
}
