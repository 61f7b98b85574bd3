package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"journal/pkg/retry"
)

var (
	errTemporary = errors.New("temporary")
	errFatal     = errors.New("fatal")
)

func failing(times int, err error) (func(context.Context) error, *int) {
	calls := 0
	return func(context.Context) error {
		calls++
		if calls <= times {
			return err
		}
		return nil
	}, &calls
}

func TestPolicy_Do(t *testing.T) {
	t.Parallel()

	temporary := func(err error, _ int) bool { return errors.Is(err, errTemporary) }

	t.Run("recovers", func(t *testing.T) {
		t.Parallel()

		f, calls := failing(2, errTemporary)
		p := retry.Policy{Attempts: 3, Backoff: time.Millisecond, ShouldRetry: temporary}

		require.NoError(t, p.Do(t.Context(), f))
		require.Equal(t, 3, *calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		t.Parallel()

		f, calls := failing(5, errTemporary)
		p := retry.Policy{Attempts: 3, Backoff: time.Millisecond, ShouldRetry: temporary}

		require.ErrorIs(t, p.Do(t.Context(), f), errTemporary)
		require.Equal(t, 3, *calls)
	})

	t.Run("does not retry permanent errors", func(t *testing.T) {
		t.Parallel()

		f, calls := failing(1, errFatal)
		p := retry.Policy{Attempts: 3, Backoff: time.Millisecond, ShouldRetry: temporary}

		require.ErrorIs(t, p.Do(t.Context(), f), errFatal)
		require.Equal(t, 1, *calls)
	})

	t.Run("zero policy tries once", func(t *testing.T) {
		t.Parallel()

		f, calls := failing(1, errTemporary)

		require.ErrorIs(t, retry.Policy{}.Do(t.Context(), f), errTemporary)
		require.Equal(t, 1, *calls)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		f, calls := failing(5, errTemporary)
		p := retry.Policy{Attempts: 5, Backoff: time.Hour}

		require.ErrorIs(t, p.Do(ctx, f), errTemporary)
		require.Equal(t, 1, *calls)
	})
}

func TestValue(t *testing.T) {
	t.Parallel()

	calls := 0
	v, err := retry.Value(t.Context(), retry.Policy{Attempts: 2}, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errTemporary
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)
}
