package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/sage/adapters/clock"
	"github.com/artpar/sage/adapters/idgen"
	"github.com/artpar/sage/adapters/memory"
	"github.com/artpar/sage/app"
	"github.com/artpar/sage/config"
)

var sendersCmd = &cobra.Command{
	Use:   "senders",
	Short: "Inspect sender specifications",
}

var sendersOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List senders past their submission deadline",
	RunE:  runSendersOverdue,
}

func init() {
	sendersCmd.AddCommand(sendersOverdueCmd)
	rootCmd.AddCommand(sendersCmd)
}

func runSendersOverdue(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}
	if cfg.Paths.Senders == "" {
		return fmt.Errorf("no senders spec configured (paths.senders)")
	}

	specs := app.NewSpecService(cfg.Paths.Catalogs, zerolog.Nop())
	svc := app.NewSenderService(specs, memory.NewProcessedStore(), clock.Real{}, idgen.UUID{}, cfg.Paths.Senders, zerolog.Nop())

	violations, err := svc.Overdue()
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("no overdue senders")
		return nil
	}
	for _, v := range violations {
		fmt.Printf("%s (%s): %s\n", v.SenderID, v.Name, v.Message)
	}
	os.Exit(1)
	return nil
}
