package brain

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ephemeral-minigames/controller/internal/metricsx"
	"github.com/ephemeral-minigames/controller/internal/names"
	"github.com/ephemeral-minigames/controller/internal/registry"
	"github.com/ephemeral-minigames/controller/internal/transport"
)

// fakeSpawner records every Spawn call instead of touching Docker.
type fakeSpawner struct {
	calls chan spawnCall
	err   error
}

type spawnCall struct {
	name string
	kind transport.Kind
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{calls: make(chan spawnCall, 16)}
}

func (f *fakeSpawner) Spawn(ctx context.Context, name string, kind transport.Kind) error {
	f.calls <- spawnCall{name: name, kind: kind}
	return f.err
}

func (f *fakeSpawner) await(t *testing.T, timeout time.Duration) spawnCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(timeout):
		t.Fatal("timed out waiting for Spawn")
		return spawnCall{}
	}
}

// pipePair returns a *transport.Writer writing into one end of a net.Pipe
// and a *transport.Reader reading from the other, so tests can observe
// exactly what the Brain sends over a writer.
func pipePair(t *testing.T) (*transport.Writer, *transport.Reader, func()) {
	t.Helper()
	serverSide, testSide := net.Pipe()
	w := transport.NewConnWriter(serverSide, 0)
	r := transport.NewReader(testSide, 0)
	return w, r, func() {
		serverSide.Close()
		testSide.Close()
	}
}

func readPacket(t *testing.T, r *transport.Reader, timeout time.Duration) transport.Packet {
	t.Helper()
	type result struct {
		packet transport.Packet
		err    error
	}
	done := make(chan result, 1)
	go func() {
		p, err := r.ReadNext()
		done <- result{packet: p, err: err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("ReadNext: %v", res.err)
		}
		return res.packet
	case <-time.After(timeout):
		t.Fatal("timed out waiting to read a packet")
		return nil
	}
}

func newTestBrain(t *testing.T) (*Handle, *registry.Registry, *fakeSpawner) {
	reg := registry.New(nil)
	nameSet := names.New()
	spawner := newFakeSpawner()
	metrics := metricsx.Init("brain_test")
	h := Start(reg, nameSet, spawner, metrics)
	return h, reg, spawner
}

func TestStartupBufferingReplaysAfterProxyConnects(t *testing.T) {
	h, reg, _ := newTestBrain(t)

	lobbyWriter, _, cleanupLobby := pipePair(t)
	defer cleanupLobby()

	// Sent before any Proxy NewConn: must be buffered, not dropped.
	h.NewConn(ConnectionInfo{Name: "lobby-0", Kind: transport.Lobby(), Host: "10.0.0.5", Port: 25700}, lobbyWriter)

	// A moment to make sure the buffering branch actually ran before the
	// proxy connects (this is about ordering, not synchronization).
	time.Sleep(50 * time.Millisecond)

	proxyWriter, proxyReader, cleanupProxy := pipePair(t)
	defer cleanupProxy()
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.1", Port: 25550}, proxyWriter)

	packet := readPacket(t, proxyReader, 2*time.Second)
	link, ok := packet.(transport.LinkServer)
	if !ok || link.Name != "lobby-0" {
		t.Fatalf("expected replayed LinkServer for lobby-0, got %#v", packet)
	}

	status, ok := reg.Lookup("lobby-0")
	if !ok || status != registry.Online {
		t.Fatalf("lobby-0 status = (%v, %v), want (Online, true)", status, ok)
	}
}

func TestNewConnRejectsSecondProxy(t *testing.T) {
	h, _, _ := newTestBrain(t)

	firstWriter, _, cleanupFirst := pipePair(t)
	defer cleanupFirst()
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.1", Port: 25550}, firstWriter)

	time.Sleep(50 * time.Millisecond)

	secondServerSide, secondTestSide := net.Pipe()
	defer secondServerSide.Close()
	secondWriter := transport.NewConnWriter(secondServerSide, 0)
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.2", Port: 25550}, secondWriter)

	buf := make([]byte, 1)
	secondTestSide.SetReadDeadline(time.Now().Add(time.Second))
	_, err := secondTestSide.Read(buf)
	if err == nil {
		t.Fatal("expected the second proxy's writer to be shut down")
	}
}

func TestNewConnMinigameLinksAndUnlinkPops(t *testing.T) {
	h, reg, _ := newTestBrain(t)

	proxyWriter, proxyReader, cleanupProxy := pipePair(t)
	defer cleanupProxy()
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.1", Port: 25550}, proxyWriter)
	time.Sleep(50 * time.Millisecond)

	serverWriter, _, cleanupServer := pipePair(t)
	defer cleanupServer()
	conn := ConnectionInfo{Name: "bedwars-0", Kind: transport.Minigame("bedwars"), Host: "10.0.0.9", Port: 25600}
	h.NewConn(conn, serverWriter)

	packet := readPacket(t, proxyReader, 2*time.Second)
	link, ok := packet.(transport.LinkServer)
	if !ok || link.Name != "bedwars-0" || link.Priority != 0 {
		t.Fatalf("expected LinkServer(bedwars-0, priority 0), got %#v", packet)
	}

	status, ok := reg.Lookup("bedwars-0")
	if !ok || status != registry.Online {
		t.Fatalf("bedwars-0 status = (%v, %v), want (Online, true)", status, ok)
	}

	h.Unlink(conn)

	packet = readPacket(t, proxyReader, 2*time.Second)
	unlink, ok := packet.(transport.UnlinkServer)
	if !ok || unlink.Name != "bedwars-0" {
		t.Fatalf("expected UnlinkServer(bedwars-0), got %#v", packet)
	}

	if _, ok := reg.Lookup("bedwars-0"); ok {
		t.Fatal("expected bedwars-0 to be removed from the registry after Unlink")
	}
}

func TestDispatchMinigameSpawnsOnNoActiveServers(t *testing.T) {
	h, reg, spawner := newTestBrain(t)

	proxyWriter, proxyReader, cleanupProxy := pipePair(t)
	defer cleanupProxy()
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.1", Port: 25550}, proxyWriter)
	time.Sleep(50 * time.Millisecond)

	h.Dispatch(transport.Minigame("bedwars"), nil)

	call := spawner.await(t, 3*time.Second)
	if call.name != "minigame-bedwars-0" {
		t.Fatalf("Spawn name = %q, want %q", call.name, "minigame-bedwars-0")
	}
	if call.kind.Tag != transport.KindMinigame || call.kind.MinigameKind != "bedwars" {
		t.Fatalf("Spawn kind = %#v, want Minigame(bedwars)", call.kind)
	}

	status, ok := reg.Lookup("minigame-bedwars-0")
	if !ok || status != registry.Starting {
		t.Fatalf("minigame-bedwars-0 status = (%v, %v), want (Starting, true)", status, ok)
	}

	_ = proxyReader
}

func TestDispatchLimboAndProxyAreDenied(t *testing.T) {
	h, _, spawner := newTestBrain(t)

	proxyWriter, _, cleanupProxy := pipePair(t)
	defer cleanupProxy()
	h.NewConn(ConnectionInfo{Name: "proxy", Kind: transport.Proxy(), Host: "10.0.0.1", Port: 25550}, proxyWriter)
	time.Sleep(50 * time.Millisecond)

	h.Dispatch(transport.Limbo(), nil)
	h.Dispatch(transport.Proxy(), nil)

	select {
	case call := <-spawner.calls:
		t.Fatalf("expected no Spawn call for Limbo/Proxy dispatch, got %+v", call)
	case <-time.After(200 * time.Millisecond):
	}
}

