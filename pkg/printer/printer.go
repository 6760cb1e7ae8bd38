package printer

import (
	"fmt"
	"net"
	"time"
)

// Printer sends raw ESC/POS bytes to a receipt printer
type Printer interface {
	Print(data []byte) error
	Close() error
}

// NetworkPrinter talks to a thermal printer over TCP (usually port 9100)
type NetworkPrinter struct {
	address string
	timeout time.Duration
}

// NewNetworkPrinter creates a printer that connects per print job
func NewNetworkPrinter(address string) *NetworkPrinter {
	return &NetworkPrinter{
		address: address,
		timeout: 5 * time.Second,
	}
}

func (p *NetworkPrinter) Print(data []byte) error {
	conn, err := net.DialTimeout("tcp", p.address, p.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to printer at %s: %w", p.address, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write to printer: %w", err)
	}
	return nil
}

func (p *NetworkPrinter) Close() error {
	return nil
}

// NullPrinter discards everything; used when no printer is configured
type NullPrinter struct{}

// NewNullPrinter creates a printer that silently drops print jobs
func NewNullPrinter() *NullPrinter {
	return &NullPrinter{}
}

func (p *NullPrinter) Print(data []byte) error {
	return nil
}

func (p *NullPrinter) Close() error {
	return nil
}

// NewPrinterFromConfig creates a printer based on configuration
func NewPrinterFromConfig(printerType, address string) (Printer, error) {
	switch printerType {
	case "network":
		if address == "" {
			return nil, fmt.Errorf("network printer requires an address")
		}
		return NewNetworkPrinter(address), nil
	case "none", "":
		return NewNullPrinter(), nil
	default:
		return nil, fmt.Errorf("unknown printer type: %s", printerType)
	}
}
