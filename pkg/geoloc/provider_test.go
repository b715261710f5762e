package geoloc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := &StaticProvider{Position: Position{Latitude: 45.46, Longitude: 9.19}}

	pos, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45.46, pos.Latitude)

	var seen []Position

	stop, err := p.Watch(context.Background(), func(pos Position) {
		seen = append(seen, pos)
	})
	require.NoError(t, err)

	defer stop()

	require.Len(t, seen, 1)
	assert.Equal(t, 9.19, seen[0].Longitude)
}

func TestFuncProviderCurrent(t *testing.T) {
	p := &FuncProvider{
		Fetch: func(_ context.Context) (Position, error) {
			return Position{Latitude: 45.46}, nil
		},
	}

	pos, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45.46, pos.Latitude)
}

func TestFuncProviderWithoutFetch(t *testing.T) {
	p := &FuncProvider{}

	_, err := p.Current(context.Background())
	require.ErrorIs(t, err, ErrNotSupported)

	_, err = p.Watch(context.Background(), func(Position) {})
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestFuncProviderWatch(t *testing.T) {
	fixes := make(chan Position, 4)

	p := &FuncProvider{
		Fetch: func(_ context.Context) (Position, error) {
			return Position{Latitude: 45.46, Timestamp: time.Now()}, nil
		},
		Interval: 5 * time.Millisecond,
	}

	stop, err := p.Watch(context.Background(), func(pos Position) {
		select {
		case fixes <- pos:
		default:
		}
	})
	require.NoError(t, err)

	defer stop()

	select {
	case pos := <-fixes:
		assert.Equal(t, 45.46, pos.Latitude)
	case <-time.After(time.Second):
		t.Fatal("expected at least one fix from the watch loop")
	}
}
