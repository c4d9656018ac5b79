package mst

import (
	"context"
	"log/slog"

	"github.com/mkszuba/flashrom/internal/i2c"
	"github.com/mkszuba/flashrom/internal/params"
	"github.com/mkszuba/flashrom/internal/programmer"
	"github.com/mkszuba/flashrom/internal/spi"
)

var _ spi.Master = (*Session)(nil)

// Name is the registry name of this programmer.
const Name = "realtek_mst_i2c_spi"

func init() {
	programmer.Register(Name, func(ctx context.Context, opts programmer.Opts, shutdown *programmer.Stack) (spi.Master, error) {
		return Init(ctx, opts, shutdown)
	})
}

// Init opens the I2C transport selected by the programmer parameters,
// starts an ISP session on the MCU and registers its teardown. The
// returned master closes over the session.
func Init(ctx context.Context, opts programmer.Opts, shutdown *programmer.Stack) (*Session, error) {
	t := opts.Transport
	if t == nil {
		bus, err := params.Bus(opts.Params)
		if err != nil {
			return nil, err
		}
		slog.Info("mst: using i2c bus", "bus", bus)
		if opts.UsePeriph {
			t, err = i2c.OpenPeriph(bus, DeviceAddr)
		} else {
			t, err = i2c.OpenDev(bus, DeviceAddr)
		}
		if err != nil {
			return nil, err
		}
	}

	s, err := New(ctx, t)
	if err != nil {
		t.Close()
		return nil, err
	}
	shutdown.Push(s.Close)
	return s, nil
}
