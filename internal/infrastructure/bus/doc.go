// Package bus provides MQTT client connectivity for Orchestrator Core.
//
// This package manages:
//   - Connection to the broker with client-owned reconnection
//   - Topic schema validation (orchestrator/{cmd,data,status}/{id})
//   - Wildcard subscription matching and fan-out dispatch
//   - Message publishing with QoS guarantees and timestamp injection
//
// # Architecture
//
// The orchestrator platform uses MQTT as the message bus connecting sensor
// drivers, the safety monitor, the state estimator, and the motor layer.
// The broker decouples each process from the others.
//
//	Sensor drivers → Broker → {Safety Monitor, State Estimator} → Broker → Motor/UI
//
// # Reconnection
//
// Paho's built-in auto-reconnect is disabled. On an unexpected disconnect
// the client runs its own loop: wait the current delay, attempt to connect,
// double the delay (capped) on failure, reset to base on success. The wait
// is a timer select against the shutdown channel, so Disconnect interrupts
// a sleep in progress.
//
// # Dispatch
//
// All inbound traffic arrives through a single default handler. Each message
// is validated (topic schema + JSON payload), then evaluated against every
// registered pattern; all matching handlers run. A handler that errors or
// panics is logged and never blocks delivery to the others.
//
// # Usage
//
//	client := bus.New(cfg.MQTT)
//	client.SetLogger(logger)
//	if err := client.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Disconnect()
//
//	topics := bus.Topics{}
//	err := client.Subscribe(topics.AllData(), 1, func(msg bus.Message) error {
//	    log.Printf("received: %s = %s", msg.Topic, msg.Payload)
//	    return nil
//	})
//
//	err = client.Publish(topics.Command("estop"), payload, 1, false)
package bus
