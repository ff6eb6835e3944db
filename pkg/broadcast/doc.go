// Package broadcast fans typed messages out to in-process subscribers.
//
//	b := broadcast.NewMemoryBroadcaster[Record](16)
//	sub := b.Subscribe(ctx) // removed when ctx is done
//	_ = b.Broadcast(ctx, broadcast.Message[Record]{Data: rec})
//	for msg := range sub.Receive(ctx) { ... }
//
// Broadcast never blocks: a subscriber that cannot keep up is dropped and its
// channel closed.
package broadcast
