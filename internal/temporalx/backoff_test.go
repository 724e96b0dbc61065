package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	b := Backoff{Base: 100 * time.Millisecond, Max: 500 * time.Millisecond}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d): want=%v got=%v", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoffDoRetriesUntilSuccess(t *testing.T) {
	b := Backoff{MaxWait: time.Second, Base: time.Millisecond, Max: time.Millisecond}
	calls := 0
	retries := 0
	err := b.Do(context.Background(), func(int) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, nil, func(int, error) { retries++ })
	if err != nil || calls != 3 || retries != 2 {
		t.Fatalf("Do: want=(nil,3,2) got=(%v,%d,%d)", err, calls, retries)
	}
}

func TestBackoffDoStopsOnPermanentError(t *testing.T) {
	b := Backoff{MaxWait: time.Second, Base: time.Millisecond}
	permanent := errors.New("bad config")
	calls := 0
	err := b.Do(context.Background(), func(int) error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) }, nil)
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("Do: want=(permanent,1) got=(%v,%d)", err, calls)
	}
}

func TestBackoffDoSingleAttemptWithoutWait(t *testing.T) {
	calls := 0
	err := Backoff{}.Do(context.Background(), func(int) error {
		calls++
		return errors.New("down")
	}, nil, nil)
	if err == nil || calls != 1 {
		t.Fatalf("Do: want one failing attempt got=(%v,%d)", err, calls)
	}
}

func TestBackoffDoHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := Backoff{MaxWait: time.Minute, Base: time.Minute}
	calls := 0
	if err := b.Do(ctx, func(int) error { calls++; return errors.New("down") }, nil, nil); err == nil || calls != 1 {
		t.Fatalf("Do: want to stop after the first attempt got=(%v,%d)", err, calls)
	}
}
