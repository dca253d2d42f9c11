// Package messaging holds the NATS connection settings and dialer used by
// event subscribers.
//
// # Usage
//
//	conn, err := messaging.Connect(cfg.Messaging, log)
//	if err != nil {
//	    return err
//	}
//	defer conn.Drain()
package messaging
