// Package transport defines the two narrow capabilities the protocol
// engine is built against — raw device I/O and transport encapsulation —
// plus concrete bindings used by the CLI entrypoints and tests.
package transport

import "context"

// DeviceIo is opaque byte transport; the engine never interprets the bytes
// it carries.
type DeviceIo interface {
	Send(ctx context.Context, buf []byte) error
	Receive(ctx context.Context, bufOut []byte) (used int, err error)
}

// TransportEncap wraps/unwraps SPDM messages in the underlying framing
// (MCTP, PCIe DOE, ...). encap_app/decap_app handle the AEAD-protected
// application payload carried inside a secured message separately from the
// unsecured SPDM header framing.
type TransportEncap interface {
	Encap(spdmBytes []byte, out []byte, secured bool) (used int, err error)
	Decap(in []byte, spdmOut []byte) (used int, secured bool, err error)
	EncapApp(app []byte, out []byte) (used int, err error)
	DecapApp(in []byte, appOut []byte) (used int, err error)
	SequenceNumberCount() uint8
	MaxRandomCount() uint8
}
