// Package cli provides the interactive banking client.
//
// The client asks for a user name and password, connects to the server,
// runs the key exchange and logs in. It then offers a small menu:
//
//	b  view balance and transfer history
//	t  send money (registers or authenticates this device first)
//	e  exit
//
// Device registration asks for the confirmation code the server delivered
// by mail; the resulting device code is stored in the device file so later
// runs authenticate without a new code.
package cli
