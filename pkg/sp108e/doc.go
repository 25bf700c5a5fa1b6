// Package sp108e is a client for SP108E-class addressable LED strip
// controllers, which accept fixed-length binary commands over TCP.
//
// # Wire protocol
//
// Every command is a 6-byte frame:
//
//	0x38 | parameter (3 bytes) | opcode | 0x83
//
// Most commands are write-only. Toggling power returns a 17-byte
// acknowledgement and the status query returns a 17-byte snapshot. There are
// no request IDs, so the client never lets two commands share the wire.
//
// # Components
//
//   - Encode / DecodeStatus: pure frame builder and status parser.
//   - ConnectionManager: owns the single socket, dials with a timeout, detects
//     remote close between requests and reconnects on demand.
//   - Serializer: FIFO queue with one worker; at most one command in flight.
//   - RetryPolicy: four attempts with 200/400/800 ms backoff, forcing a
//     reconnect after every failure.
//   - Client: semantic operations (power, brightness, colour, modes, strip
//     configuration, status) built on the above.
//
// # Quick start
//
//	c := sp108e.NewClient("192.168.1.50", 8189, sp108e.WithLogger(logger))
//	defer c.Close()
//
//	if err := c.TurnOn(ctx); err != nil {
//	    return err
//	}
//	if err := c.SetColor(ctx, "ff8800"); err != nil {
//	    return err
//	}
//	st, err := c.GetStatus(ctx)
//
// # Concurrency
//
// A Client is safe for concurrent use. Calls are executed in submission order
// and each caller blocks until its own command (including retries and pacing)
// has finished.
package sp108e
