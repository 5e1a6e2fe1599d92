package dispatcher

import "context"

// Task is one client-side protocol exchange. The set is closed: only the
// types in this file implement it.
type Task interface {
	isTask()
}

// Handshake runs the key exchange.
type Handshake struct{}

// Login sends the credentials.
type Login struct {
	Name     string
	Password string
}

// Balance requests the balance and history.
type Balance struct{}

// Registration enrolls this device. Confirm is asked for the code the
// server delivered out of band.
type Registration struct {
	Confirm func(ctx context.Context) (string, error)
}

// Authentication presents a device code stored by an earlier registration.
type Authentication struct {
	DeviceCode string
}

// Transaction sends money.
type Transaction struct {
	Recipient string
	Amount    int
}

func (Handshake) isTask()      {}
func (Login) isTask()          {}
func (Balance) isTask()        {}
func (Registration) isTask()   {}
func (Authentication) isTask() {}
func (Transaction) isTask()    {}

// Result is the outcome of a task. Reply is the server's last reply, OK tells
// whether it was the success literal for the task.
type Result struct {
	Reply      string
	OK         bool
	DeviceCode string
}
