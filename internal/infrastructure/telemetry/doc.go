// Package telemetry streams robot pose samples to InfluxDB.
//
// The writer uses the client library's asynchronous batched API:
// WritePose queues a point and returns immediately, batches flush on
// size or interval, and write failures surface through an error
// callback rather than a return value. The state estimator's publish
// loop therefore never blocks on the time-series store.
//
// Telemetry is optional. When disabled in configuration the estimator
// simply runs without a recorder; nothing else changes.
//
// Usage:
//
//	w, err := telemetry.Connect(ctx, telemetry.Config{
//	    URL:    "http://localhost:8086",
//	    Token:  token,
//	    Org:    "robotics",
//	    Bucket: "telemetry",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	w.SetOnError(func(err error) { logger.Warn("telemetry write", "error", err) })
//	w.WritePose(telemetry.Pose{RobotID: "robot_01", X: 1.2, Y: 0.4})
package telemetry
