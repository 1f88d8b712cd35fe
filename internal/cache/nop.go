package cache

import (
	"context"
	"time"
)

// NopStore is the Store used when caching is disabled: every read is a
// miss and writes go nowhere, so handlers always hit the repositories.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (NopStore) Set(context.Context, string, []byte, time.Duration) {}
func (NopStore) DeletePrefix(context.Context, string)               {}
