// Package distributor pushes each worker its initial shard of the catalog.
package distributor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"booking/bus"
	"booking/entities"
	"booking/logging"
	"booking/protocol"
	"booking/ring"
)

var logger = logging.GetLogger("distributor")

// Distribute partitions hotels over addrs and sends every worker its shard
// on a dedicated connection. It returns once every worker has closed its
// load connection, which it does after ingesting the shard.
func Distribute(ctx context.Context, addrs []string, hotels []entities.Hotel, dialTimeout time.Duration, maxFrame int) error {
	shards := ring.Partition(hotels, len(addrs))

	g, ctx := errgroup.WithContext(ctx)
	for id, addr := range addrs {
		g.Go(func() error {
			if err := sendShard(ctx, addr, shards[id], dialTimeout, maxFrame); err != nil {
				return errors.Wrapf(err, "bulk load worker %d", id)
			}
			logger.WithField("worker", id).Infof("Sent %d hotels to %s", len(shards[id]), addr)
			return nil
		})
	}
	return g.Wait()
}

func sendShard(ctx context.Context, addr string, shard []entities.Hotel, dialTimeout time.Duration, maxFrame int) error {
	conn, err := bus.Dial(ctx, addr, dialTimeout, maxFrame)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send(protocol.BulkLoad{Hotels: shard}); err != nil {
		return errors.Wrap(err, "send shard")
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	// the worker answers nothing; EOF means the shard was taken
	_, err = conn.ReceiveRaw()
	if bus.IsClosed(err) && ctx.Err() == nil {
		return nil
	}
	if err == nil {
		return errors.New("unexpected reply to bulk load")
	}
	return errors.Wrap(err, "wait for worker")
}
