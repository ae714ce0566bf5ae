package reviews

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attributeErrDriver struct {
	*fakeDriver
	err error
}

func (d attributeErrDriver) ReadAttribute(context.Context, Handle, string) (string, error) {
	return "", d.err
}

func TestFingerprint(t *testing.T) {
	ctx := context.Background()
	d := newFakeDriver(nil, 0, 0)

	tests := []struct {
		name     string
		item     *fakeItem
		idAttr   string
		position int
		want     string
	}{
		{"source id", &fakeItem{id: "ChZDSUhN"}, d.sel.ItemID, 4, "ChZDSUhN"},
		{"source id is trimmed", &fakeItem{id: "  abc \n"}, d.sel.ItemID, 0, "abc"},
		{"blank id falls back to position", &fakeItem{id: "   "}, d.sel.ItemID, 7, "idx-7"},
		{"no id attribute configured", &fakeItem{id: "ignored"}, "", 2, "idx-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandle{kind: "item", item: tt.item}
			got, err := Fingerprint(ctx, d, h, tt.idAttr, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFingerprint_ReadErrors(t *testing.T) {
	ctx := context.Background()
	h := &fakeHandle{kind: "item", item: &fakeItem{id: "rev-1"}}
	sel := DefaultSelectors()

	t.Run("missing attribute falls back to position", func(t *testing.T) {
		d := attributeErrDriver{fakeDriver: newFakeDriver(nil, 0, 0), err: fmt.Errorf("%w: id", ErrNotFound)}

		got, err := Fingerprint(ctx, d, h, sel.ItemID, 3)

		require.NoError(t, err)
		assert.Equal(t, "idx-3", got)
	})

	t.Run("driver fault is reported", func(t *testing.T) {
		d := attributeErrDriver{fakeDriver: newFakeDriver(nil, 0, 0), err: errors.New("target closed")}

		got, err := Fingerprint(ctx, d, h, sel.ItemID, 3)

		assert.Error(t, err)
		assert.Empty(t, got)
	})
}

func TestNewTermination(t *testing.T) {
	known := newTermination(120, time.Second)
	assert.IsType(t, knownTotal{}, known)
	assert.False(t, known.reached(119))
	assert.True(t, known.reached(120))
	assert.True(t, known.reached(121))
	assert.Equal(t, ReasonTarget, known.reason())
	assert.True(t, known.awaitMore(context.Background(), nil, 0))

	unknown := newTermination(0, time.Second)
	assert.IsType(t, unknownTotal{}, unknown)
	assert.False(t, unknown.reached(1_000_000))
	assert.Equal(t, ReasonExhausted, unknown.reason())
}
