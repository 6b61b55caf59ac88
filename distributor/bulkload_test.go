package distributor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking/bus"
	"booking/entities"
	"booking/protocol"
	"booking/ring"
)

func TestDistribute(t *testing.T) {
	const n = 3
	var hotels []entities.Hotel
	for i := 0; i < 12; i++ {
		hotels = append(hotels, entities.Hotel{HotelName: fmt.Sprintf("hotel-%d", i)})
	}

	addrs := make([]string, n)
	got := make([]chan protocol.BulkLoad, n)
	for i := 0; i < n; i++ {
		lis, err := bus.Listen("127.0.0.1:0")
		require.NoError(t, err)
		defer lis.Close()
		addrs[i] = lis.Addr().String()
		got[i] = make(chan protocol.BulkLoad, 1)

		go func(i int) {
			conn, err := bus.Accept(lis, 0)
			if err != nil {
				return
			}
			defer conn.Close()
			var load protocol.BulkLoad
			if conn.Receive(&load) == nil {
				got[i] <- load
			}
		}(i)
	}

	require.NoError(t, Distribute(context.Background(), addrs, hotels, time.Second, 0))

	total := 0
	for i := 0; i < n; i++ {
		load := <-got[i]
		for _, h := range load.Hotels {
			assert.Equal(t, i, ring.SelectWorker(h.HotelName, n))
		}
		total += len(load.Hotels)
	}
	assert.Equal(t, len(hotels), total)
}

func TestDistributeUnreachable(t *testing.T) {
	lis, err := bus.Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	lis.Close()

	err = Distribute(context.Background(), []string{addr}, nil, 200*time.Millisecond, 0)
	assert.Error(t, err)
}
