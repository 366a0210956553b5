package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/combat"
	"github.com/enamaryn/XNova-reforged-sub000/internal/game"
	"github.com/enamaryn/XNova-reforged-sub000/internal/routes"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/arguments"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/spf13/cobra"
)

// version :
// Version of the server, set at build time with:
// -ldflags "-X main.version=x.y.z"
var version = "0.1.0"

// shutdownTimeout :
// Time given to the pending requests to complete when the
// server is stopped.
const shutdownTimeout = 10 * time.Second

// app :
// State shared by the commands: the metadata read from the
// configuration and the logger built from it.
type app struct {
	configFile string
	metadata   arguments.AppMetadata
	log        *logger.StdLogger
}

func main() {
	a := &app{}

	var cmdRoot = &cobra.Command{
		Use:           "xnova_server",
		Short:         "XNova game server",
		Long:          `xnova_server runs the engine of the game: the API and the sweeps advancing queues, fleets and resources.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := arguments.Parse(a.configFile)
			if err != nil {
				return err
			}

			a.metadata = metadata
			a.log = logger.NewStdLogger(metadata.InstanceID, metadata.PublicIPv4)

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Release()
			}
		},
	}
	cmdRoot.PersistentFlags().StringVar(&a.configFile, "config", "", "name of the configuration file (local/master/staging/production)")

	cmdRoot.AddCommand(cmdServe(a))
	cmdRoot.AddCommand(cmdSweep(a))
	cmdRoot.AddCommand(cmdSimulate(a))
	cmdRoot.AddCommand(cmdVersion())

	if err := cmdRoot.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xnova_server: %v\n", err)
		os.Exit(1)
	}
}

func cmdServe(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the API and run the sweeps until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := game.NewInstance(a.log)
			if err != nil {
				return err
			}
			defer i.Close()

			if err := i.Sweeps.Start(); err != nil {
				return err
			}
			defer i.Sweeps.Stop()

			server := routes.NewServer(a.metadata.Port, i.Services(), routes.ParseConfiguration(), a.log)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errs := make(chan error, 1)
			go func() {
				errs <- server.Serve()
			}()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			a.log.Trace(logger.Notice, "main", "Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		},
	}
}

func cmdSweep(a *app) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "advance the due queues, fleets and resources once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if len(at) > 0 {
				var err error
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid instant \"%s\": %w", at, err)
				}
			}

			i, err := game.NewInstance(a.log)
			if err != nil {
				return err
			}
			defer i.Close()

			report, err := i.Sweeps.RunOnce(cmd.Context(), now)

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			if eErr := out.Encode(report); eErr != nil {
				return eErr
			}

			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", at, "instant to advance to (RFC 3339), now by default")

	return cmd
}

func cmdSimulate(a *app) *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "simulate [battle-file]",
		Short: "resolve a battle described in JSON without touching the game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var battle combat.Battle
			dec := json.NewDecoder(in)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&battle); err != nil {
				return fmt.Errorf("invalid battle: %w", err)
			}

			i, err := game.NewInstanceWithStore(store.NewMemory(), a.log)
			if err != nil {
				return err
			}
			defer i.Close()

			if !cmd.Flags().Changed("seed") {
				seed = combat.SimulationSeed(time.Now())
			}

			sim, err := i.Combat.Simulate(battle, seed)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(sim)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed of the battle, derived from the current time by default")

	return cmd
}

func cmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "display the version of the server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xnova_server %s\n", version)
		},
	}
}
