//go:build tinygo && rp2040 && (challenger_rp2040 || comboat_fw || ninafw)

package main

import (
	"context"
	"time"

	"tinygo.org/x/drivers/netlink/probe"

	"wificode-go/app"
	"wificode-go/services/console"
	"wificode-go/services/wifi/radio"
	"wificode-go/x/logx"
	"wificode-go/x/nvs"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	log := logx.WithComponent("main")
	log.Info().Msg("boot")

	ctx := context.Background()
	a := app.New(app.Options{Device: "pico", Console: console.UART0(115200)})

	link, dev := probe.Probe()
	r := radio.NewNetlink(link, dev, a.Notify())

	// TODO: back the history with on-board flash once an nvs flash driver exists.
	a.Start(ctx, r, nvs.NewMem())

	select {}
}
