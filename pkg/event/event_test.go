package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modera-shop/modera/pkg/event"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	bus := event.NewBus()
	var got []string
	bus.Listen(event.CartUpdated, func(p interface{}) { got = append(got, "a:"+p.(event.CartChange).ItemID) })
	bus.Listen(event.CartUpdated, func(p interface{}) { panic("boom") })
	bus.Listen(event.CartUpdated, func(p interface{}) { got = append(got, "c:"+p.(event.CartChange).ItemID) })

	bus.Fire(event.CartUpdated, event.CartChange{ItemID: "7"})
	assert.Equal(t, []string{"a:7", "c:7"}, got)

	bus.Flush()
	bus.Fire(event.CartUpdated, event.CartChange{ItemID: "8"})
	assert.Len(t, got, 2)
}
