package driver

import (
	"context"
	"sync"
	"time"

	"github.com/d1nch8g/ample/sound"
	"github.com/d1nch8g/ample/source"
)

// cascade tries a request's sources in order under one initialized driver,
// with at most one attempt in flight
type cascade struct {
	driver   *Driver
	ctx      context.Context
	sources  []*source.Source
	opts     Options
	done     func(sound.Sound, error)
	index    int
	failures []*SourceError
}

func (c *cascade) next() {
	for c.index < len(c.sources) {
		if err := c.ctx.Err(); err != nil {
			c.done(nil, err)
			return
		}

		src := c.sources[c.index]
		c.index++

		if src.Type() == source.Unknown {
			// Only the bytes can tell what this source is
			go func() {
				if _, err := src.Resolve(c.ctx); err != nil {
					c.fail(src, err)
					c.next()
					return
				}
				if !c.consider(src) {
					c.next()
				}
			}()
			return
		}

		if c.consider(src) {
			return
		}
	}

	c.done(nil, &ExhaustedError{Driver: c.driver.Name(), Failures: c.failures})
}

// consider starts an attempt on src if the driver can play its type and
// reports whether it did
func (c *cascade) consider(src *source.Source) bool {
	if !c.driver.backend.Supports(src.Type()) {
		c.fail(src, ErrUnsupportedType)
		return false
	}
	c.attempt(src)
	return true
}

func (c *cascade) fail(src *source.Source, err error) {
	c.driver.logger.Debug("Source failed", "source", src.String(), "error", err)
	c.failures = append(c.failures, &SourceError{
		Driver: c.driver.Name(),
		Source: src,
		Err:    err,
	})
}

func (c *cascade) attempt(src *source.Source) {
	var (
		mu      sync.Mutex
		settled bool
	)
	// claim marks the attempt settled; only the first caller wins
	claim := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if settled {
			return false
		}
		settled = true
		return true
	}

	ctx := c.ctx
	var stop context.CancelFunc = func() {}
	if t := c.driver.attemptTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(c.ctx)
		timer := time.AfterFunc(t, func() {
			if claim() {
				cancel()
				c.fail(src, ErrAttemptTimeout)
				c.next()
			}
		})
		stop = func() {
			timer.Stop()
			cancel()
		}
	}

	c.driver.backend.Attempt(ctx, src, c.opts, func(s sound.Sound, err error) {
		if !claim() {
			// The attempt already timed out; nobody will ever play this sound
			if s != nil {
				_ = s.Close()
			}
			return
		}
		stop()
		if err != nil {
			c.fail(src, err)
			c.next()
			return
		}
		c.driver.logger.Debug("Source opened", "source", src.String())
		c.done(s, nil)
	})
}
