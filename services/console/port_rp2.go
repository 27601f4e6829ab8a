//go:build rp2040

package console

import (
	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// UART0 configures the first hardware UART at baud. Zero pins keep the
// board defaults.
func UART0(baud uint32) Port {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{BaudRate: baud})
	return u
}
