// Command wifisim runs the wifi stack against a simulated radio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"wificode-go/app"
	"wificode-go/bus"
	"wificode-go/services/console"
	"wificode-go/services/wifi"
	"wificode-go/services/wifi/consts"
	"wificode-go/services/wifi/radio"
	"wificode-go/types"
	"wificode-go/x/logx"
	"wificode-go/x/nvs"
	"wificode-go/x/util"
)

var (
	runScenario string
	runDB       string
	runConfig   string
	runDuration time.Duration
	runSpeed    float64
	runConsole  bool
	networksDB  string
	logLevel    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wifisim",
		Short:        "Run the wifi history and reconnection engine on a simulated radio",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logx.Init(logx.Config{Level: logLevel, Output: "stderr"})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	root.AddCommand(newRunCmd())
	root.AddCommand(newNetworksCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the stack and play a scenario",
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&runScenario, "scenario", "", "scenario YAML file")
	cmd.Flags().StringVar(&runDB, "db", "", "SQLite file backing the flash store (in-memory when empty)")
	cmd.Flags().StringVar(&runConfig, "config", "", "JSON or YAML device config (embedded sim config when empty)")
	cmd.Flags().DurationVar(&runDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().Float64Var(&runSpeed, "speed", 1, "time multiplier for service waits and scenario steps")
	cmd.Flags().BoolVar(&runConsole, "console", false, "read console commands from stdin")
	return cmd
}

func newNetworksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "Print the remembered networks stored in a database file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if networksDB == "" {
				return fmt.Errorf("--db is required")
			}
			kv, err := nvs.OpenSQLite(networksDB)
			if err != nil {
				return err
			}
			defer kv.Close()
			nets, err := wifi.Networks(cmd.Context(), kv)
			if err != nil {
				return err
			}
			for i, ni := range nets {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d %-32s prio=%3d ok=%d last=%d rssi=%d\n",
					i+1, ni.SSID, ni.Priority, ni.SuccessCount, ni.LastConnected, ni.RSSI)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&networksDB, "db", "", "SQLite file")
	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	log := logx.WithComponent("wifisim")

	var sc Scenario
	if runScenario != "" {
		var err error
		if sc, err = LoadScenario(runScenario); err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
	}

	var kv nvs.Store = nvs.NewMem()
	if runDB != "" {
		db, err := nvs.OpenSQLite(runDB)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		kv = db
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if runDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	opt := app.Options{Device: "sim", ConfigPath: runConfig}
	if runSpeed > 0 && runSpeed != 1 {
		speed := runSpeed
		opt.Sleep = func(ctx context.Context, d time.Duration) bool {
			return util.Sleep(ctx, time.Duration(float64(d)/speed))
		}
	}
	if runConsole {
		opt.Console = console.Stdio()
	}

	a := app.New(opt)
	sim := radio.NewSim(a.Notify(), sc.APs...)
	a.Start(ctx, sim, kv)

	select {
	case <-ctx.Done():
		return nil
	case <-a.Wifi().Ready():
	}

	conn := a.Bus.NewConnection("wifisim")
	for _, n := range sc.Networks {
		pw := n.Password
		if err := request(ctx, conn, consts.CtrlAdd, types.NetworkAdd{SSID: n.SSID, Password: &pw}); err != nil {
			log.Warn().Err(err).Str("ssid", n.SSID).Msg("provision failed")
		}
	}

	go sc.Play(ctx, sim, runSpeed, func(st Step) {
		log.Info().Dur("at", st.At).Uint8("drop", st.Drop).Str("note", st.Note).Msg("scenario step")
	})

	states := conn.Subscribe(bus.T(consts.TokWiFi, consts.TokState))
	for {
		select {
		case <-ctx.Done():
			<-a.Wifi().Done()
			return nil
		case m := <-states.Channel():
			if st, ok := m.Payload.(types.WiFiState); ok {
				log.Info().Str("state", string(st.State)).Str("ssid", st.SSID).Int("retry", st.Retry).
					Str("reason", st.Reason).Msg("wifi state")
			}
		}
	}
}

func request(ctx context.Context, conn *bus.Connection, verb string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	reply, err := conn.RequestWait(ctx, conn.NewMessage(bus.T(consts.TokWiFi, consts.TokControl, verb), payload, false))
	if err != nil {
		return err
	}
	if e, ok := reply.Payload.(types.ErrorReply); ok {
		return fmt.Errorf("%s: %s", verb, e.Error)
	}
	return nil
}
