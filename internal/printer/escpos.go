package printer

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A

	codePagePC858 = 19
)

// Transport delivers raw ESC/POS bytes to a printer.
type Transport func(ctx context.Context, data []byte) error

// NetworkTransport writes to a raw TCP printer port such as 192.168.1.50:9100.
func NetworkTransport(address string) Transport {
	return func(ctx context.Context, data []byte) error {
		dialer := net.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("printer: connect %s: %w", address, err)
		}
		defer conn.Close()

		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("printer: write %s: %w", address, err)
		}
		return nil
	}
}

// DeviceTransport writes to a device file such as /dev/usb/lp0.
func DeviceTransport(path string) Transport {
	return func(_ context.Context, data []byte) error {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
		if err != nil {
			return fmt.Errorf("printer: open %s: %w", path, err)
		}
		defer f.Close()

		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("printer: write %s: %w", path, err)
		}
		return nil
	}
}

type ESCPOSPrinter struct {
	send Transport
}

func NewESCPOSPrinter(send Transport) *ESCPOSPrinter {
	return &ESCPOSPrinter{send: send}
}

func (p *ESCPOSPrinter) Print(ctx context.Context, doc string, _ int) error {
	data, err := EncodeESCPOS(doc)
	if err != nil {
		return err
	}
	return p.send(ctx, data)
}

// EncodeESCPOS wraps doc in init, code page selection, feed and partial cut.
// Characters outside code page 858 print as '?'.
func EncodeESCPOS(doc string) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(charmap.CodePage858.NewEncoder())
	body, err := enc.String(strings.ReplaceAll(doc, "\r\n", "\n"))
	if err != nil {
		return nil, fmt.Errorf("printer: encode: %w", err)
	}

	var buf bytes.Buffer
	buf.Write([]byte{esc, '@'})
	buf.Write([]byte{esc, 't', codePagePC858})
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte(lf)
	}
	buf.Write([]byte{esc, 'd', 4})
	buf.Write([]byte{gs, 'V', 'A', 0x10})
	return buf.Bytes(), nil
}
