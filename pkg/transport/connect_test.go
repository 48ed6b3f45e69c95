package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/transport"
	"github.com/chatsock/chatsock-go/pkg/transport/mocks"
)

func testResourceConfig() transport.ResourceConfig {
	return transport.ResourceConfig{
		Name:      "authenticated",
		KeepAlive: transport.KeepAliveConfig{Interval: time.Hour},
	}
}

func newMockConn(t *testing.T) *mocks.MockChatConnection {
	conn := mocks.NewMockChatConnection(t)
	conn.EXPECT().Info().Return(transport.ConnectionInfo{IPVersion: transport.IPv6, LocalPort: 5555}).Maybe()
	return conn
}

func TestConnectAuthenticated(t *testing.T) {
	t.Run("ResolvesResource", func(t *testing.T) {
		conn := newMockConn(t)
		conn.EXPECT().Disconnect().Return(nil).Once()

		creds := transport.Credentials{Username: "alice", Password: "pw"}
		opts := transport.ConnectOptions{ReceiveStories: true}

		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectAuthenticated(mock.Anything, creds, mock.Anything, opts).Return(conn, nil).Once()

		p := transport.ConnectAuthenticated(context.Background(), dialer, creds,
			func(*transport.IncomingRequest) {}, nil, opts, testResourceConfig())

		r, err := p.Result(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5555, r.LocalPort())
		assert.Equal(t, transport.IPv6, r.IPVersion())

		r.Shutdown()
	})

	t.Run("DialError", func(t *testing.T) {
		wantErr := transport.NewHTTPError(401, "unauthorized", nil)
		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectAuthenticated(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, wantErr).Once()

		p := transport.ConnectAuthenticated(context.Background(), dialer, transport.Credentials{},
			func(*transport.IncomingRequest) {}, nil, transport.ConnectOptions{}, testResourceConfig())

		_, err := p.Result(context.Background())
		assert.ErrorIs(t, err, wantErr)
	})

	t.Run("ListenerRoutesTraffic", func(t *testing.T) {
		conn := newMockConn(t)
		conn.EXPECT().Disconnect().Return(nil).Maybe()

		var listener transport.ChatListener
		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectAuthenticated(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Run(func(_ context.Context, _ transport.Credentials, l transport.ChatListener, _ transport.ConnectOptions) {
				listener = l
			}).
			Return(conn, nil).Once()

		var requests []*transport.IncomingRequest
		var alerts []string

		p := transport.ConnectAuthenticated(context.Background(), dialer, transport.Credentials{Username: "a"},
			func(req *transport.IncomingRequest) { requests = append(requests, req) },
			func(a []string) { alerts = append(alerts, a...) },
			transport.ConnectOptions{}, testResourceConfig())

		r, err := p.Result(context.Background())
		require.NoError(t, err)

		ack := mocks.NewMockAck(t)
		ack.EXPECT().Send(200).Return(nil).Once()

		ts := time.UnixMilli(1234)
		listener.OnIncomingMessage([]byte("env"), ts, ack)
		listener.OnQueueEmpty()
		listener.OnReceivedAlerts([]string{"critical"})

		require.Len(t, requests, 2)
		assert.Equal(t, transport.RequestTypeAPIMessage, requests[0].Type)
		assert.Equal(t, []byte("env"), requests[0].Body)
		assert.True(t, ts.Equal(requests[0].Timestamp))
		require.NoError(t, requests[0].Respond(200))
		assert.Equal(t, transport.RequestTypeAPIEmptyQueue, requests[1].Type)
		assert.Equal(t, []string{"critical"}, alerts)

		closed := make(chan transport.CloseEvent, 1)
		r.OnClose(func(ev transport.CloseEvent) { closed <- ev })
		listener.OnConnectionInterrupted(transport.NewError(transport.ErrorCodeConnectedElsewhere, "replaced"))

		ev := <-closed
		assert.Equal(t, transport.CloseConnectedElsewhere, ev.Code)
		assert.True(t, ev.Remote)

		// Queue empty after the drop is not delivered.
		listener.OnQueueEmpty()
		assert.Len(t, requests, 2)
	})

	t.Run("InterruptBeforeResolveIsReplayed", func(t *testing.T) {
		conn := newMockConn(t)

		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectAuthenticated(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			RunAndReturn(func(_ context.Context, _ transport.Credentials, l transport.ChatListener, _ transport.ConnectOptions) (transport.ChatConnection, error) {
				l.OnConnectionInterrupted(errors.New("reset"))
				return conn, nil
			}).Once()

		p := transport.ConnectAuthenticated(context.Background(), dialer, transport.Credentials{Username: "a"},
			func(*transport.IncomingRequest) {}, nil, transport.ConnectOptions{}, testResourceConfig())

		r, err := p.Result(context.Background())
		require.NoError(t, err)
		assert.True(t, r.Closed())

		var got transport.CloseEvent
		r.OnClose(func(ev transport.CloseEvent) { got = ev })
		assert.Equal(t, transport.CloseUnexpectedDisconnect, got.Code)
	})
}

func TestConnectAbort(t *testing.T) {
	t.Run("AbortDuringDial", func(t *testing.T) {
		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectUnauthenticated(mock.Anything, mock.Anything, mock.Anything).
			RunAndReturn(func(ctx context.Context, _ transport.ConnectionListener, _ transport.ConnectOptions) (transport.ChatConnection, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}).Once()

		p := transport.ConnectUnauthenticated(context.Background(), dialer, transport.ConnectOptions{}, testResourceConfig())
		p.Abort()

		_, err := p.Result(context.Background())
		assert.ErrorIs(t, err, connection.ErrAborted)
	})

	t.Run("AbortAfterResolveClosesResource", func(t *testing.T) {
		conn := newMockConn(t)
		conn.EXPECT().Disconnect().Return(nil).Once()

		dialer := mocks.NewMockDialer(t)
		dialer.EXPECT().ConnectUnauthenticated(mock.Anything, mock.Anything, mock.Anything).Return(conn, nil).Once()

		p := transport.ConnectUnauthenticated(context.Background(), dialer, transport.ConnectOptions{}, testResourceConfig())
		r, err := p.Result(context.Background())
		require.NoError(t, err)

		p.Abort()

		var got transport.CloseEvent
		r.OnClose(func(ev transport.CloseEvent) { got = ev })
		assert.Equal(t, transport.CloseAborted, got.Code)
	})
}

func TestConnectProvisioning(t *testing.T) {
	conn := newMockConn(t)
	conn.EXPECT().Disconnect().Return(nil).Once()

	var listener transport.ServerRequestListener
	dialer := mocks.NewMockProvisioningDialer(t)
	dialer.EXPECT().ConnectProvisioning(mock.Anything, mock.Anything, mock.Anything).
		Run(func(_ context.Context, l transport.ServerRequestListener, _ transport.ConnectOptions) {
			listener = l
		}).
		Return(conn, nil).Once()

	var types []transport.RequestType
	cfg := testResourceConfig()
	cfg.Name = "provisioning"
	cfg.KeepAlive.Path = transport.ProvisioningKeepAlivePath

	p := transport.ConnectProvisioning(context.Background(), dialer,
		func(req *transport.IncomingRequest) { types = append(types, req.Type) },
		transport.ConnectOptions{}, cfg)

	r, err := p.Result(context.Background())
	require.NoError(t, err)
	defer r.Shutdown()

	assert.Equal(t, transport.ProvisioningKeepAlivePath, r.KeepAlive().Config().Path)

	listener.OnServerRequest("PUT", transport.PathProvisioningAddress, nil, nil)
	listener.OnServerRequest("PUT", transport.PathProvisioningMessage, []byte("m"), nil)
	listener.OnServerRequest("GET", transport.PathProvisioningMessage, nil, nil)

	assert.Equal(t, []transport.RequestType{
		transport.RequestTypeProvisioningAddress,
		transport.RequestTypeProvisioningMessage,
		transport.RequestTypeUnknown,
	}, types)
}
