package engine

import (
	"errors"
	"testing"

	"github.com/voxfs-go/voxfs/backend/memory"
	"github.com/voxfs-go/voxfs/voxfstest"
)

func TestBackendErrorWrapsStoreFailure(t *testing.T) {
	injected := errors.New("simulated device failure")
	store := &voxfstest.FaultyStore{
		Store: memory.New(DefaultBlockSize * 30),
		ReadFn: func(offset, length uint64) ([]byte, error) {
			return nil, injected
		},
	}

	_, err := Open(store, voxfstest.FixedClock{Nanos: 1})
	if err == nil {
		t.Fatalf("expected Open to fail when the backend read fails")
	}

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected a *BackendError, got %T: %v", err, err)
	}
	if !errors.Is(err, injected) {
		t.Fatalf("expected errors.Is to unwrap to the injected error, got %v", err)
	}
}

func TestMkfsSurfacesZeroFailure(t *testing.T) {
	injected := errors.New("simulated write failure")
	store := &voxfstest.FaultyStore{
		Store: memory.New(DefaultBlockSize * 30),
		ZeroFn: func(start, end uint64) error {
			return injected
		},
	}

	_, err := Mkfs(store, voxfstest.FixedClock{Nanos: 1}, DefaultBlockSize)
	if !errors.Is(err, injected) {
		t.Fatalf("Mkfs = %v, want an error wrapping the injected failure", err)
	}
}
