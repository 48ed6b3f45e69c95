package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatsock/chatsock-go/pkg/transport"
)

func envelope(body string) *transport.IncomingRequest {
	return transport.NewIncomingRequest(transport.RequestTypeAPIMessage, []byte(body), time.Time{}, nil)
}

type panickingHandler struct{}

func (*panickingHandler) HandleRequest(*transport.IncomingRequest) error { panic("handler bug") }
func (*panickingHandler) HandleDisconnect()                              { panic("handler bug") }

func TestRequestDispatcher(t *testing.T) {
	t.Run("QueuesUntilRegistered", func(t *testing.T) {
		d := NewRequestDispatcher(nil)
		d.Dispatch(envelope("1"))
		d.Dispatch(envelope("2"))
		assert.Equal(t, 2, d.QueueLength())

		log := &callLog{}
		d.Register(&recordingHandler{name: "a", log: log})
		d.Dispatch(envelope("3"))

		assert.Equal(t, []string{"a:1", "a:2", "a:3"}, log.Calls())
		assert.Equal(t, 0, d.QueueLength())
	})

	t.Run("QueueDrainsToFirstHandlerOnly", func(t *testing.T) {
		d := NewRequestDispatcher(nil)
		d.Dispatch(envelope("1"))

		log := &callLog{}
		d.Register(&recordingHandler{name: "a", log: log})
		d.Register(&recordingHandler{name: "b", log: log})
		d.Dispatch(envelope("2"))

		assert.Equal(t, []string{"a:1", "a:2", "b:2"}, log.Calls())
	})

	t.Run("BroadcastSurvivesFailingHandlers", func(t *testing.T) {
		d := NewRequestDispatcher(nil)
		log := &callLog{}
		d.Register(&recordingHandler{name: "a", log: log, fail: errBoom})
		d.Register(&panickingHandler{})
		d.Register(&recordingHandler{name: "c", log: log})

		d.Dispatch(envelope("x"))
		assert.Equal(t, []string{"a:x", "c:x"}, log.Calls())

		assert.NotPanics(t, d.Disconnect)
	})

	t.Run("Unregister", func(t *testing.T) {
		d := NewRequestDispatcher(nil)
		a := &recordingHandler{}
		b := &recordingHandler{}
		d.Register(a)
		d.Register(b)

		d.Unregister(a)
		d.Unregister(&recordingHandler{})
		assert.Equal(t, 1, d.HandlerCount())

		d.Dispatch(envelope("x"))
		assert.Empty(t, a.Bodies())
		assert.Equal(t, []string{"x"}, b.Bodies())
	})

	t.Run("DisconnectDropsQueue", func(t *testing.T) {
		d := NewRequestDispatcher(nil)
		d.Dispatch(envelope("stale"))
		d.Disconnect()
		assert.Equal(t, 0, d.QueueLength())

		h := &recordingHandler{}
		d.Register(h)
		assert.Empty(t, h.Bodies())

		d.Disconnect()
		assert.Equal(t, 1, h.Disconnects())
	})

	t.Run("FuncAdapter", func(t *testing.T) {
		var got []string
		disconnected := false
		h := &RequestHandlerFuncs{
			OnRequest: func(req *transport.IncomingRequest) error {
				got = append(got, string(req.Body))
				return nil
			},
			OnDisconnect: func() { disconnected = true },
		}

		d := NewRequestDispatcher(nil)
		d.Register(h)
		d.Register(&RequestHandlerFuncs{})
		d.Dispatch(envelope("x"))
		d.Disconnect()

		assert.Equal(t, []string{"x"}, got)
		assert.True(t, disconnected)
	})
}
