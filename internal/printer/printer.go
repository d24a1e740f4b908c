// Package printer hands formatted documents to physical or virtual printers.
package printer

import (
	"context"
	"fmt"
)

// Printer prints a fixed-width text document. pageWidth is the nominal
// width in dots; implementations that cannot use it ignore it.
type Printer interface {
	Print(ctx context.Context, doc string, pageWidth int) error
}

type NullPrinter struct{}

func (NullPrinter) Print(_ context.Context, _ string, _ int) error { return nil }

// PrinterFunc adapts a function to Printer.
type PrinterFunc func(ctx context.Context, doc string, pageWidth int) error

func (f PrinterFunc) Print(ctx context.Context, doc string, pageWidth int) error {
	return f(ctx, doc, pageWidth)
}

// FromConfig builds a printer for mode: "none", "pdf", "escpos-network" or "escpos-device".
func FromConfig(mode string, pdfDir string, target string) (Printer, error) {
	switch mode {
	case "", "none":
		return NullPrinter{}, nil
	case "pdf":
		if pdfDir == "" {
			return nil, fmt.Errorf("printer: output directory is required for pdf mode")
		}
		return NewPDFPrinter(pdfDir), nil
	case "escpos-network":
		if target == "" {
			return nil, fmt.Errorf("printer: address is required for escpos-network mode")
		}
		return NewESCPOSPrinter(NetworkTransport(target)), nil
	case "escpos-device":
		if target == "" {
			return nil, fmt.Errorf("printer: device path is required for escpos-device mode")
		}
		return NewESCPOSPrinter(DeviceTransport(target)), nil
	default:
		return nil, fmt.Errorf("printer: unknown mode %q (use none, pdf, escpos-network or escpos-device)", mode)
	}
}
